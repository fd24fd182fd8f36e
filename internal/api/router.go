package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crm.service/internal/api/handler"
	"crm.service/internal/metrics"
)

// Services bundles what the HTTP layer needs from the core.
type Services struct {
	Leads      handler.LeadService
	Employees  handler.EmployeeService
	Attendance handler.AttendanceService
	Dashboard  handler.DashboardService
}

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(s Services) *mux.Router {
	leads := handler.LeadHandler{Service: s.Leads}
	employees := handler.EmployeeHandler{Service: s.Employees}
	attendance := handler.AttendanceHandler{Service: s.Attendance}
	dashboard := handler.DashboardHandler{Service: s.Dashboard}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	// /leads/upload must be registered before /leads/{id}.
	api.HandleFunc("/leads/upload", leads.Upload).Methods(http.MethodPost)
	api.HandleFunc("/leads", leads.Create).Methods(http.MethodPost)
	api.HandleFunc("/leads", leads.List).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id}", leads.Get).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id}", leads.Update).Methods(http.MethodPatch)

	api.HandleFunc("/employees", employees.Create).Methods(http.MethodPost)
	api.HandleFunc("/employees", employees.List).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id}", employees.Get).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id}", employees.Remove).Methods(http.MethodDelete)

	api.HandleFunc("/employees/{id}/check-in", attendance.CheckIn).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}/start-break", attendance.StartBreak).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}/end-break", attendance.EndBreak).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}/final-check-out", attendance.FinalCheckOut).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}/attendance", attendance.Get).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id}/breaks/history", attendance.BreaksHistory).Methods(http.MethodGet)

	api.HandleFunc("/dashboard/summary", dashboard.Summary).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/employee-performance", dashboard.EmployeePerformance).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/daily-closed", dashboard.DailyClosed).Methods(http.MethodGet)

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
