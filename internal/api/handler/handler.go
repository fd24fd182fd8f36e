package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"crm.service/internal/core"
	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds request bodies, CSV uploads included.
const maxBodyBytes = 5 << 20

type LeadService interface {
	CreateLead(ctx context.Context, in core.CreateLeadInput) (*model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, f model.LeadFilter) (model.LeadPage, error)
	UpdateLead(ctx context.Context, id string, in core.UpdateLeadInput) (*model.Lead, error)
	ImportLeads(ctx context.Context, rows []model.ImportRow) (model.ImportReport, error)
}

type EmployeeService interface {
	CreateEmployee(ctx context.Context, in core.CreateEmployeeInput) (*model.Employee, error)
	GetEmployee(ctx context.Context, id string) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	RemoveEmployee(ctx context.Context, id string) (model.RemovalReport, error)
}

type AttendanceService interface {
	CheckIn(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	StartBreak(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	EndBreak(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	FinalCheckOut(ctx context.Context, employeeID string) (*model.AttendanceRecord, error)
	GetAttendance(ctx context.Context, employeeID string, day *time.Time) (model.AttendanceSnapshot, error)
	GetBreaksHistory(ctx context.Context, employeeID string) ([]model.CompletedBreak, error)
}

type DashboardService interface {
	Summary(ctx context.Context) (model.DashboardSummary, error)
	EmployeePerformance(ctx context.Context) ([]model.EmployeePerformance, error)
	DailyClosedLeads(ctx context.Context, days int) ([]model.DailyCount, error)
}

type errorResponse struct {
	Error *apperror.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError answers with the public view of err. Storage failures are
// logged with their cause and reach the client only as a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: apperror.Public(err)})
}

// decodeJSON reads a single JSON object into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.Validation("body", "request body is required")
		case errors.As(err, &maxErr):
			return apperror.Validation("body", "request body is too large")
		default:
			return apperror.Validation("body", "invalid request body: %s", err.Error())
		}
	}
	return nil
}
