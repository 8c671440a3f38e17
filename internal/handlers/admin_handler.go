package handlers

import (
	"log"
	"net/http"

	"github.com/librahub/backend/internal/services"
)

type AdminHandler struct {
	scheduler *services.Scheduler
	validator *services.ValidationHelper
}

func NewAdminHandler(scheduler *services.Scheduler) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, validator: services.NewValidationHelper()}
}

type RunSweepsRequest struct {
	Sweeps []string `json:"sweeps,omitempty" validate:"dive,required"`
}

type RunSweepsResponse struct {
	Results []services.SweepResult `json:"results"`
	Error   string                 `json:"error,omitempty"`
}

// RunSweeps runs the scheduler once
// @Summary Run Sweeps
// @Description Runs the named sweeps, or all of them, in order. A failing sweep does not stop the rest.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RunSweepsRequest false "Sweeps to run"
// @Success 200 {object} RunSweepsResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} RunSweepsResponse
// @Router /admin/sweeps/run [post]
func (h *AdminHandler) RunSweeps(w http.ResponseWriter, r *http.Request) {
	var req RunSweepsRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	caller, _ := services.RequesterFromContext(r.Context())
	log.Printf("[SCHEDULER] Manual run requested by %s: %v", caller.Username, req.Sweeps)

	results, err := h.scheduler.RunOnce(r.Context(), req.Sweeps...)
	if results == nil && err != nil {
		services.SendServiceError(w, err)
		return
	}

	resp := RunSweepsResponse{Results: results}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}
	services.SendJSON(w, status, resp)
}
