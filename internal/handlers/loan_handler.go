package handlers

import (
	"net/http"

	"github.com/librahub/backend/internal/models"
	"github.com/librahub/backend/internal/services"
)

type LoanHandler struct {
	loans     *services.LoanService
	queries   *services.QueryService
	validator *services.ValidationHelper
}

func NewLoanHandler(loans *services.LoanService, queries *services.QueryService) *LoanHandler {
	return &LoanHandler{
		loans:     loans,
		queries:   queries,
		validator: services.NewValidationHelper(),
	}
}

type BorrowRequest struct {
	CopyID   int64  `json:"copy_id" validate:"required,gt=0"`
	MemberID *int64 `json:"member_id,omitempty" validate:"omitempty,gt=0"`
}

type ReturnRequest struct {
	CopyID   int64  `json:"copy_id" validate:"required,gt=0"`
	MemberID *int64 `json:"member_id,omitempty" validate:"omitempty,gt=0"`
}

// Borrow lends a copy to the caller, or to another member when staff
// @Summary Borrow Copy
// @Description Creates an ACTIVE loan and marks the copy LOANED
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BorrowRequest true "Copy to borrow"
// @Success 201 {object} models.Loan
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /loans [post]
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	var req BorrowRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	memberID, ok := actingFor(w, caller, req.MemberID)
	if !ok {
		return
	}

	loan, err := h.loans.BorrowBook(r.Context(), memberID, req.CopyID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, loan)
}

// Return closes a loan
// @Summary Return Copy
// @Description Closes the loan, charges any overdue fee and queues the copy for inspection
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path int true "Loan ID"
// @Param request body ReturnRequest true "Copy being returned"
// @Success 200 {object} models.Loan
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /loans/{loanId}/return [post]
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}
	var req ReturnRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	memberID, ok := actingFor(w, caller, req.MemberID)
	if !ok {
		return
	}

	loan, err := h.loans.ReturnBook(r.Context(), loanID, memberID, req.CopyID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, loan)
}

// GetLoan returns one loan
// @Summary Get Loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param loanId path int true "Loan ID"
// @Success 200 {object} models.Loan
// @Failure 404 {object} services.ErrorResponse
// @Router /loans/{loanId} [get]
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.loans.GetLoan(r.Context(), loanID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if !caller.CanActFor(loan.MemberID) {
		services.SendServiceError(w, services.ErrNotFound)
		return
	}
	services.SendJSON(w, http.StatusOK, loan)
}

// ListLoans lists loans; members see only their own
// @Summary List Loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param member_id query int false "Member ID (staff only)"
// @Param copy_id query int false "Copy ID"
// @Param status query string false "Loan status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Loan
// @Router /loans [get]
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	memberID, ok := memberScope(w, r, caller)
	if !ok {
		return
	}
	copyID, err := queryID(r, "copy_id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid copy_id", http.StatusBadRequest, nil)
		return
	}

	loans, err := h.queries.ListLoans(r.Context(), services.LoanFilter{
		MemberID: memberID,
		CopyID:   copyID,
		Status:   models.LoanStatus(r.URL.Query().Get("status")),
		Page:     queryPage(r),
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, loans)
}
