package handlers

import (
	"net/http"

	"github.com/librahub/backend/internal/models"
	"github.com/librahub/backend/internal/services"
)

type PenaltyHandler struct {
	penalties *services.PenaltyService
	payments  *services.PaymentService
	loans     *services.LoanService
	queries   *services.QueryService
	validator *services.ValidationHelper
}

func NewPenaltyHandler(penalties *services.PenaltyService, payments *services.PaymentService, loans *services.LoanService, queries *services.QueryService) *PenaltyHandler {
	return &PenaltyHandler{
		penalties: penalties,
		payments:  payments,
		loans:     loans,
		queries:   queries,
		validator: services.NewValidationHelper(),
	}
}

type CreatePenaltyRequest struct {
	LoanID int64  `json:"loan_id" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,oneof=OVERDUE LOST DAMAGED OVERDUE_DAMAGED"`
}

type PayPenaltyRequest struct {
	Method string `json:"method" validate:"required,oneof=CASH CARD ONLINE"`
}

// CreatePenalty charges a loan explicitly
// @Summary Create Penalty
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePenaltyRequest true "Loan and reason"
// @Success 201 {object} models.Penalty
// @Failure 409 {object} services.ErrorResponse
// @Router /penalties [post]
func (h *PenaltyHandler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	var req CreatePenaltyRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	penalty, err := h.penalties.CreatePenaltyForReason(r.Context(), req.LoanID, models.PenaltyReason(req.Reason))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, penalty)
}

// GetPenalty returns one penalty
// @Summary Get Penalty
// @Tags Penalties
// @Produce json
// @Security BearerAuth
// @Param penaltyId path int true "Penalty ID"
// @Success 200 {object} models.Penalty
// @Failure 404 {object} services.ErrorResponse
// @Router /penalties/{penaltyId} [get]
func (h *PenaltyHandler) GetPenalty(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "penaltyId")
	if !ok {
		return
	}

	penalty, err := h.penalties.GetPenalty(r.Context(), id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if !caller.IsStaff() {
		loan, err := h.loans.GetLoan(r.Context(), penalty.LoanID)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		if loan.MemberID != caller.MemberID {
			services.SendServiceError(w, services.ErrNotFound)
			return
		}
	}
	services.SendJSON(w, http.StatusOK, penalty)
}

// ListPenalties lists penalties; members see only their own
// @Summary List Penalties
// @Tags Penalties
// @Produce json
// @Security BearerAuth
// @Param member_id query int false "Member ID (staff only)"
// @Param loan_id query int false "Loan ID"
// @Param status query string false "Penalty status"
// @Success 200 {array} models.Penalty
// @Router /penalties [get]
func (h *PenaltyHandler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	memberID, ok := memberScope(w, r, caller)
	if !ok {
		return
	}
	loanID, err := queryID(r, "loan_id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid loan_id", http.StatusBadRequest, nil)
		return
	}

	penalties, err := h.queries.ListPenalties(r.Context(), services.PenaltyFilter{
		MemberID: memberID,
		LoanID:   loanID,
		Status:   models.PenaltyStatus(r.URL.Query().Get("status")),
		Page:     queryPage(r),
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, penalties)
}

// PayPenalty settles a penalty in full
// @Summary Pay Penalty
// @Description Records a payment for the penalty's current amount. The method is recorded, not processed.
// @Tags Penalties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param penaltyId path int true "Penalty ID"
// @Param request body PayPenaltyRequest true "Payment method"
// @Success 201 {object} models.Payment
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /penalties/{penaltyId}/payments [post]
func (h *PenaltyHandler) PayPenalty(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "penaltyId")
	if !ok {
		return
	}
	var req PayPenaltyRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	payment, err := h.payments.PayPenalty(r.Context(), id, models.PaymentMethod(req.Method), caller)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, payment)
}

// ListPayments lists payments; members see only their own
// @Summary List Payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param member_id query int false "Member ID (staff only)"
// @Param method query string false "Payment method"
// @Success 200 {array} models.Payment
// @Router /payments [get]
func (h *PenaltyHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	memberID, ok := memberScope(w, r, caller)
	if !ok {
		return
	}

	payments, err := h.queries.ListPayments(r.Context(), services.PaymentFilter{
		MemberID: memberID,
		Method:   models.PaymentMethod(r.URL.Query().Get("method")),
		Page:     queryPage(r),
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, payments)
}

// GetPayment returns one payment
// @Summary Get Payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {object} models.Payment
// @Failure 404 {object} services.ErrorResponse
// @Router /payments/{paymentId} [get]
func (h *PenaltyHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if !caller.CanActFor(payment.MemberID) {
		services.SendServiceError(w, services.ErrNotFound)
		return
	}
	services.SendJSON(w, http.StatusOK, payment)
}
