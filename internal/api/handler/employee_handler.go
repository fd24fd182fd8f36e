package handler

import (
	"net/http"

	"crm.service/internal/core"
	"github.com/gorilla/mux"
)

type EmployeeHandler struct {
	Service EmployeeService
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.CreateEmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	emp, err := h.Service.CreateEmployee(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

// Remove deletes the employee after handing their pending leads to others.
func (h *EmployeeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.RemoveEmployee(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Employee removed",
		"leads":   report,
	})
}
