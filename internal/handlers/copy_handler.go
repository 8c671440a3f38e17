package handlers

import (
	"log"
	"net/http"

	"github.com/librahub/backend/internal/models"
	"github.com/librahub/backend/internal/services"
)

type CopyHandler struct {
	copies    *services.CopyService
	queries   *services.QueryService
	labels    *services.LabelService
	validator *services.ValidationHelper
}

func NewCopyHandler(copies *services.CopyService, queries *services.QueryService, labels *services.LabelService) *CopyHandler {
	return &CopyHandler{
		copies:    copies,
		queries:   queries,
		labels:    labels,
		validator: services.NewValidationHelper(),
	}
}

type AssignLocationRequest struct {
	LocationID int64 `json:"location_id" validate:"required,gt=0"`
}

type InspectionRequest struct {
	Damaged *bool `json:"damaged" validate:"required"`
}

// CreateCopy registers a new physical copy of a book
// @Summary Add Copy
// @Description Register a new AVAILABLE copy with a generated barcode
// @Tags Copies
// @Produce json
// @Security BearerAuth
// @Param bookId path int true "Book ID"
// @Success 201 {object} models.Copy
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /books/{bookId}/copies [post]
func (h *CopyHandler) CreateCopy(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "bookId")
	if !ok {
		return
	}

	c, err := h.copies.CreateForBook(r.Context(), bookID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, c)
}

// AssignLocation shelves a copy
// @Summary Assign Copy Location
// @Tags Copies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Param request body AssignLocationRequest true "Target location"
// @Success 200 {object} models.Copy
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /copies/{copyId}/location [put]
func (h *CopyHandler) AssignLocation(w http.ResponseWriter, r *http.Request) {
	copyID, ok := pathID(w, r, "copyId")
	if !ok {
		return
	}
	var req AssignLocationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	c, err := h.copies.AssignLocation(r.Context(), copyID, req.LocationID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, c)
}

// InspectCopy records the post-return check of a copy
// @Summary Inspect Returned Copy
// @Description Damaged copies are charged against their last loan
// @Tags Copies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Param request body InspectionRequest true "Inspection result"
// @Success 200 {object} models.Copy
// @Failure 409 {object} services.ErrorResponse
// @Router /copies/{copyId}/inspection [post]
func (h *CopyHandler) InspectCopy(w http.ResponseWriter, r *http.Request) {
	copyID, ok := pathID(w, r, "copyId")
	if !ok {
		return
	}
	var req InspectionRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	c, err := h.copies.InspectReturn(r.Context(), copyID, *req.Damaged)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	log.Printf("[COPY] Inspection of copy %d recorded (damaged=%t)", copyID, *req.Damaged)
	services.SendJSON(w, http.StatusOK, c)
}

// MarkLost writes a copy off
// @Summary Mark Copy Lost
// @Tags Copies
// @Produce json
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Success 200 {object} models.Copy
// @Failure 409 {object} services.ErrorResponse
// @Router /copies/{copyId}/lost [post]
func (h *CopyHandler) MarkLost(w http.ResponseWriter, r *http.Request) {
	copyID, ok := pathID(w, r, "copyId")
	if !ok {
		return
	}

	c, err := h.copies.MarkLost(r.Context(), copyID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, c)
}

// PendingInspection lists copies waiting for their post-return check
// @Summary List Copies Pending Inspection
// @Tags Copies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Copy
// @Router /copies/pending-inspection [get]
func (h *CopyHandler) PendingInspection(w http.ResponseWriter, r *http.Request) {
	copies, err := h.copies.ListPendingInspection(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if copies == nil {
		copies = []models.Copy{}
	}
	services.SendJSON(w, http.StatusOK, copies)
}

// ListCopies lists copies with optional filters
// @Summary List Copies
// @Tags Copies
// @Produce json
// @Security BearerAuth
// @Param book_id query int false "Book ID"
// @Param status query string false "Copy status"
// @Param q query string false "Barcode keyword"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Copy
// @Router /copies [get]
func (h *CopyHandler) ListCopies(w http.ResponseWriter, r *http.Request) {
	bookID, err := queryID(r, "book_id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid book_id", http.StatusBadRequest, nil)
		return
	}

	copies, err := h.queries.ListCopies(r.Context(), services.CopyFilter{
		BookID:  bookID,
		Status:  models.CopyStatus(r.URL.Query().Get("status")),
		Keyword: r.URL.Query().Get("q"),
		Page:    queryPage(r),
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	services.SendJSON(w, http.StatusOK, copies)
}

// Label returns the QR shelf label of a copy
// @Summary Copy Label
// @Tags Copies
// @Produce png
// @Security BearerAuth
// @Param copyId path int true "Copy ID"
// @Success 200 {file} binary
// @Failure 404 {object} services.ErrorResponse
// @Router /copies/{copyId}/label [get]
func (h *CopyHandler) Label(w http.ResponseWriter, r *http.Request) {
	copyID, ok := pathID(w, r, "copyId")
	if !ok {
		return
	}

	png, err := h.labels.Label(r.Context(), copyID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}
