package handlers

import (
	"net/http"

	"github.com/librahub/backend/internal/models"
	"github.com/librahub/backend/internal/services"
)

type ReservationHandler struct {
	reservations *services.ReservationService
	queries      *services.QueryService
	validator    *services.ValidationHelper
}

func NewReservationHandler(reservations *services.ReservationService, queries *services.QueryService) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		queries:      queries,
		validator:    services.NewValidationHelper(),
	}
}

type ReserveRequest struct {
	MemberID *int64 `json:"member_id,omitempty" validate:"omitempty,gt=0"`
}

// Reserve puts the caller in a book's queue
// @Summary Reserve Book
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookId path int true "Book ID"
// @Param request body ReserveRequest false "Member to reserve for (staff only)"
// @Success 201 {object} models.Reservation
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /books/{bookId}/reservations [post]
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	bookID, ok := pathID(w, r, "bookId")
	if !ok {
		return
	}

	var req ReserveRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	memberID, ok := actingFor(w, caller, req.MemberID)
	if !ok {
		return
	}

	res, err := h.reservations.ReserveBook(r.Context(), bookID, memberID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, res)
}

// Cancel withdraws a reservation
// @Summary Cancel Reservation
// @Tags Reservations
// @Produce json
// @Security BearerAuth
// @Param reservationId path int true "Reservation ID"
// @Success 200 {object} models.Reservation
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /reservations/{reservationId} [delete]
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reservationId")
	if !ok {
		return
	}

	res, err := h.reservations.CancelReservation(r.Context(), id, caller)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, res)
}

// Reorder renumbers a book's queue to 1..N
// @Summary Reorder Reservation Queue
// @Tags Reservations
// @Produce json
// @Security BearerAuth
// @Param bookId path int true "Book ID"
// @Success 200 {array} models.Reservation
// @Router /books/{bookId}/reservations/reorder [post]
func (h *ReservationHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "bookId")
	if !ok {
		return
	}

	queue, err := h.reservations.ReorderQueue(r.Context(), bookID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if queue == nil {
		queue = []models.Reservation{}
	}
	services.SendJSON(w, http.StatusOK, queue)
}

// ListReservations lists reservations; members see only their own
// @Summary List Reservations
// @Tags Reservations
// @Produce json
// @Security BearerAuth
// @Param member_id query int false "Member ID (staff only)"
// @Param book_id query int false "Book ID"
// @Param status query string false "Reservation status"
// @Success 200 {array} models.Reservation
// @Router /reservations [get]
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	caller, ok := requester(w, r)
	if !ok {
		return
	}
	memberID, ok := memberScope(w, r, caller)
	if !ok {
		return
	}
	bookID, err := queryID(r, "book_id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid book_id", http.StatusBadRequest, nil)
		return
	}

	reservations, err := h.queries.ListReservations(r.Context(), services.ReservationFilter{
		MemberID: memberID,
		BookID:   bookID,
		Status:   models.ReservationStatus(r.URL.Query().Get("status")),
		Page:     queryPage(r),
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, reservations)
}
