package repository

import (
	"context"
	"time"

	"crm.service/internal/core/model"
)

// TransactionManager runs fn atomically. Repository calls made with the
// context passed to fn join the transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EmployeeRepository is the employee directory.
type EmployeeRepository interface {
	Create(ctx context.Context, e *model.Employee) error
	FindByID(ctx context.Context, id string) (*model.Employee, error)
	// FindByFullName matches first and last name case-insensitively. It
	// returns nil, nil when nobody matches.
	FindByFullName(ctx context.Context, firstName, lastName string) (*model.Employee, error)
	// List returns every employee ordered by id.
	List(ctx context.Context) ([]model.Employee, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// LeadRepository persists leads. Every ownership change is a conditional
// write so concurrent writers cannot both move a lead.
type LeadRepository interface {
	Create(ctx context.Context, l *model.Lead) error
	FindByID(ctx context.Context, id string) (*model.Lead, error)
	List(ctx context.Context, f model.LeadFilter) (model.LeadPage, error)
	// ContactTaken reports which of email / phone already belong to a lead.
	ContactTaken(ctx context.Context, email, phone *string) (emailTaken, phoneTaken bool, err error)

	// PendingCounts returns the pending-lead count for each id. Ids without
	// pending leads map to zero.
	PendingCounts(ctx context.Context, employeeIDs []string) (map[string]int, error)
	PendingByAssignee(ctx context.Context, employeeID string) ([]model.Lead, error)

	// AssignIfUnassigned sets the owner only while the lead has none. Every
	// ownership write below also bumps the lead version.
	AssignIfUnassigned(ctx context.Context, leadID, employeeID string) (bool, error)
	// Reassign moves a pending lead only while it is still owned by from.
	Reassign(ctx context.Context, leadID, from, to string) (bool, error)
	// UnassignPending clears the owner of every pending lead of employeeID.
	UnassignPending(ctx context.Context, employeeID string) (int, error)
	// ReleaseClosed clears the owner of every closed lead of employeeID.
	ReleaseClosed(ctx context.Context, employeeID string) (int, error)

	// ScheduleTaken reports whether another non-closed lead of employeeID
	// is booked at exactly s.
	ScheduleTaken(ctx context.Context, employeeID, excludeLeadID string, s model.Schedule) (bool, error)
	// Update writes status, type and schedule when the stored version still
	// equals expectedVersion, and bumps l.Version.
	Update(ctx context.Context, l *model.Lead, expectedVersion int64) error
}

// AttendanceRepository persists one record per employee and day.
type AttendanceRepository interface {
	// FindByEmployeeAndDay returns nil, nil when the day has no record yet.
	FindByEmployeeAndDay(ctx context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]model.AttendanceRecord, error)
	// Create inserts the first record of a day. A record already present for
	// the same employee and day is a state conflict.
	Create(ctx context.Context, r *model.AttendanceRecord) error
	// CompareAndSwap replaces the record when the stored version still
	// equals expectedVersion, and bumps r.Version.
	CompareAndSwap(ctx context.Context, r *model.AttendanceRecord, expectedVersion int64) error
	UpdateExportStatus(ctx context.Context, id string, status model.ExportStatus, retryCount int) error
}

type DashboardRepository interface {
	Summary(ctx context.Context, assignedSince time.Time) (model.DashboardSummary, error)
	EmployeePerformance(ctx context.Context) ([]model.EmployeePerformance, error)
	// ClosedPerDay counts leads closed per UTC day in [from, to), keyed YYYY-MM-DD.
	ClosedPerDay(ctx context.Context, from, to time.Time) (map[string]int, error)
}
