package handler

import "net/http"

type DashboardHandler struct {
	Service DashboardService
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Service.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *DashboardHandler) EmployeePerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.Service.EmployeePerformance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// DailyClosed returns closed-lead counts for the last ?days= days (14 by default).
func (h *DashboardHandler) DailyClosed(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), "days")
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := h.Service.DailyClosedLeads(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
