package handler

import (
	"context"
	"net/http"
	"time"

	"crm.service/internal/core"
	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"github.com/gorilla/mux"
)

type AttendanceHandler struct {
	Service AttendanceService
}

type transitionResponse struct {
	Message string                  `json:"message"`
	Status  model.AttendanceStatus  `json:"status"`
	Record  *model.AttendanceRecord `json:"record"`
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.CheckIn, "Checked in")
}

func (h *AttendanceHandler) StartBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.StartBreak, "Break started")
}

func (h *AttendanceHandler) EndBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.EndBreak, "Break ended")
}

func (h *AttendanceHandler) FinalCheckOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.FinalCheckOut, "Checked out for the day")
}

func (h *AttendanceHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, employeeID string) (*model.AttendanceRecord, error),
	message string,
) {
	rec, err := apply(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Message: message, Status: core.StatusOf(rec), Record: rec})
}

// Get returns the record of ?date=YYYY-MM-DD, today by default.
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse(model.ScheduleDateLayout, v)
		if err != nil {
			writeError(w, r, apperror.Validation("date", "date must be YYYY-MM-DD"))
			return
		}
		day = &d
	}

	snap, err := h.Service.GetAttendance(r.Context(), mux.Vars(r)["id"], day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *AttendanceHandler) BreaksHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.GetBreaksHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
