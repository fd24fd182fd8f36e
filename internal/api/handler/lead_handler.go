package handler

import (
	"net/http"
	"strconv"
	"strings"

	"crm.service/internal/core"
	"crm.service/internal/core/model"
	"crm.service/internal/ports/csvimport"
	"crm.service/pkg/apperror"
	"github.com/gorilla/mux"
)

type LeadHandler struct {
	Service LeadService
}

type importRequest struct {
	CSVData string `json:"csvData"`
}

type importResponse struct {
	Message string `json:"message"`
	model.ImportReport
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.CreateLeadInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	lead, err := h.Service.CreateLead(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Service.GetLead(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// List accepts status, assignedTo, language, location, leadType, search,
// scheduled, limit and offset (or page) query parameters.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := model.LeadFilter{
		Status:     model.LeadStatus(q.Get("status")),
		AssignedTo: q.Get("assignedTo"),
		Type:       model.LeadType(q.Get("leadType")),
		Search:     q.Get("search"),
	}
	if v := q.Get("language"); v != "" {
		lang, ok := model.ParseLanguage(v)
		if !ok {
			writeError(w, r, apperror.Validation("language", "language %q is not supported", v))
			return
		}
		f.Language = lang
	}
	if v := q.Get("location"); v != "" {
		loc, ok := model.ParseLocation(v)
		if !ok {
			writeError(w, r, apperror.Validation("location", "location %q is not supported", v))
			return
		}
		f.Location = loc
	}
	f.ScheduledOnly = strings.EqualFold(q.Get("scheduled"), "true")

	var err error
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		writeError(w, r, err)
		return
	}
	if page, err := intParam(q.Get("page"), "page"); err != nil {
		writeError(w, r, err)
		return
	} else if page > 1 && f.Offset == 0 {
		limit := f.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		f.Offset = (page - 1) * limit
	}

	result, err := h.Service.ListLeads(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in core.UpdateLeadInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	lead, err := h.Service.UpdateLead(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Upload imports leads from CSV text sent as {"csvData": "..."}.
func (h *LeadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.CSVData) == "" {
		writeError(w, r, apperror.Validation("csvData", "csvData is required"))
		return
	}

	rows, err := csvimport.Parse(strings.NewReader(req.CSVData))
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.Service.ImportLeads(r.Context(), rows)
	if err != nil {
		if apperror.IsKind(err, apperror.KindValidation) {
			writeJSON(w, http.StatusBadRequest, struct {
				errorResponse
				Report model.ImportReport `json:"report"`
			}{errorResponse{Error: apperror.Public(err)}, report})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, importResponse{
		Message:      strconv.Itoa(report.Inserted) + " leads imported",
		ImportReport: report,
	})
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperror.Validation(name, "%s must be a non-negative integer", name)
	}
	return n, nil
}
