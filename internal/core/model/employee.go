package model

import "time"

type Employee struct {
	ID        string    `json:"id"`
	CustomID  string    `json:"customId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Language  Language  `json:"language"`
	Location  Location  `json:"location"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Workload pairs an employee with their current number of pending leads.
type Workload struct {
	EmployeeID string `json:"employeeId"`
	Pending    int    `json:"pending"`
}
