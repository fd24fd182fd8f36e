package model

import "time"

// WorkPeriod is a contiguous interval of work. End is nil while it is open.
type WorkPeriod struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

// BreakPeriod is a contiguous interval of break. BreakEnd is nil while it is open.
type BreakPeriod struct {
	BreakStart time.Time  `json:"breakStart"`
	BreakEnd   *time.Time `json:"breakEnd"`
}

// AttendanceRecord holds one employee's events for one UTC calendar day. The
// period lists are append-only and double as the audit trail.
type AttendanceRecord struct {
	ID               string        `json:"id"`
	EmployeeID       string        `json:"employeeId"`
	Day              time.Time     `json:"day"`
	FirstCheckIn     *time.Time    `json:"firstCheckIn"`
	FinalCheckOut    *time.Time    `json:"finalCheckOut"`
	WorkPeriods      []WorkPeriod  `json:"workPeriods"`
	Breaks           []BreakPeriod `json:"breaks"`
	Version          int64         `json:"version"`
	ExportStatus     ExportStatus  `json:"exportStatus"`
	ExportRetryCount int           `json:"exportRetryCount"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy so transitions never alias the caller's slices.
// Nil lists stay nil.
func (r AttendanceRecord) Clone() AttendanceRecord {
	out := r
	if r.WorkPeriods != nil {
		out.WorkPeriods = make([]WorkPeriod, len(r.WorkPeriods))
		copy(out.WorkPeriods, r.WorkPeriods)
	}
	if r.Breaks != nil {
		out.Breaks = make([]BreakPeriod, len(r.Breaks))
		copy(out.Breaks, r.Breaks)
	}
	return out
}

// Totals sums closed work and break time.
func (r AttendanceRecord) Totals() (worked, onBreak time.Duration) {
	for _, wp := range r.WorkPeriods {
		if wp.End != nil {
			worked += wp.End.Sub(wp.Start)
		}
	}
	for _, bp := range r.Breaks {
		if bp.BreakEnd != nil {
			onBreak += bp.BreakEnd.Sub(bp.BreakStart)
		}
	}
	return worked, onBreak
}

// AttendanceStatus is the live state derived from a record.
type AttendanceStatus string

const (
	StatusNotCheckedIn AttendanceStatus = "NotCheckedIn"
	StatusWorking      AttendanceStatus = "Working"
	StatusOnBreak      AttendanceStatus = "OnBreak"
	StatusCheckedOut   AttendanceStatus = "CheckedOut"
)

// AttendanceEvent is an input to the attendance state machine.
type AttendanceEvent string

const (
	EventCheckIn       AttendanceEvent = "check_in"
	EventStartBreak    AttendanceEvent = "start_break"
	EventEndBreak      AttendanceEvent = "end_break"
	EventFinalCheckOut AttendanceEvent = "final_check_out"
)

// AttendanceSnapshot is the read view of one employee-day.
type AttendanceSnapshot struct {
	Record         AttendanceRecord `json:"record"`
	Status         AttendanceStatus `json:"status"`
	OnBreak        bool             `json:"onBreak"`
	BreakStartTime *time.Time       `json:"breakStartTime"`
	Active         bool             `json:"active"`
}

// CompletedBreak is one closed break, tagged with its day.
type CompletedBreak struct {
	Day        time.Time     `json:"day"`
	BreakStart time.Time     `json:"breakStart"`
	BreakEnd   time.Time     `json:"breakEnd"`
	Duration   time.Duration `json:"durationNs"`
}
