package messaging

import "time"

// NotificationKind selects the e-mail template sent to an employee.
type NotificationKind string

const (
	NotificationLeadAssigned    NotificationKind = "lead_assigned"
	NotificationCheckoutSummary NotificationKind = "checkout_summary"
)

// NotificationEvent is the JSON payload sent via SQS for the notification queue.
type NotificationEvent struct {
	Kind        NotificationKind `json:"kind"`
	EmployeeID  string           `json:"employeeId"`
	LeadID      string           `json:"leadId,omitempty"`
	LeadName    string           `json:"leadName,omitempty"`
	HoursWorked float64          `json:"hoursWorked,omitempty"`
	OccurredAt  time.Time        `json:"occurredAt"`
}

// DayClosedEvent is the JSON payload sent via SQS for the timesheet queue
// after a final check-out.
type DayClosedEvent struct {
	AttendanceID  string    `json:"attendanceId"`
	EmployeeID    string    `json:"employeeId"`
	Day           string    `json:"day"`
	WorkedMinutes int       `json:"workedMinutes"`
	BreakMinutes  int       `json:"breakMinutes"`
	FirstCheckIn  time.Time `json:"firstCheckIn"`
	FinalCheckOut time.Time `json:"finalCheckOut"`
}
