package core

import (
	"time"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
)

// StatusOf derives the live status of an employee-day. A nil record means
// the employee has not checked in that day. A closed work period with no
// open break and no check-out also reads as NotCheckedIn: the employee left
// without a formal break and may check in again.
func StatusOf(rec *model.AttendanceRecord) model.AttendanceStatus {
	if rec == nil {
		return model.StatusNotCheckedIn
	}
	if rec.FinalCheckOut != nil {
		return model.StatusCheckedOut
	}
	if n := len(rec.Breaks); n > 0 && rec.Breaks[n-1].BreakEnd == nil {
		return model.StatusOnBreak
	}
	if n := len(rec.WorkPeriods); n > 0 && rec.WorkPeriods[n-1].End == nil {
		return model.StatusWorking
	}
	return model.StatusNotCheckedIn
}

// Transition applies event to rec at now and returns the resulting record.
// rec is never modified. When rec is nil only EventCheckIn is accepted and
// the returned record still needs its identity fields.
func Transition(rec *model.AttendanceRecord, event model.AttendanceEvent, now time.Time) (model.AttendanceRecord, error) {
	status := StatusOf(rec)

	var next model.AttendanceRecord
	if rec != nil {
		next = rec.Clone()
	}

	if status == model.StatusCheckedOut {
		return model.AttendanceRecord{}, apperror.StateConflict("already checked out for today")
	}

	switch event {
	case model.EventCheckIn:
		switch status {
		case model.StatusWorking:
			return model.AttendanceRecord{}, apperror.StateConflict("already checked in")
		case model.StatusOnBreak:
			closeBreak(&next, now)
		}
		if next.FirstCheckIn == nil {
			next.FirstCheckIn = &now
		}
		openWork(&next, now)

	case model.EventStartBreak:
		switch status {
		case model.StatusOnBreak:
			return model.AttendanceRecord{}, apperror.StateConflict("already on break")
		case model.StatusNotCheckedIn:
			return model.AttendanceRecord{}, apperror.StateConflict("not checked in")
		}
		closeWork(&next, now)
		next.Breaks = append(next.Breaks, model.BreakPeriod{BreakStart: now})

	case model.EventEndBreak:
		if status != model.StatusOnBreak {
			return model.AttendanceRecord{}, apperror.StateConflict("not on break")
		}
		closeBreak(&next, now)
		openWork(&next, now)

	case model.EventFinalCheckOut:
		switch status {
		case model.StatusOnBreak:
			return model.AttendanceRecord{}, apperror.StateConflict("end the current break before checking out")
		case model.StatusNotCheckedIn:
			return model.AttendanceRecord{}, apperror.StateConflict("not checked in")
		}
		closeWork(&next, now)
		next.FinalCheckOut = &now

	default:
		return model.AttendanceRecord{}, apperror.Validation("event", "unknown attendance event %q", event)
	}

	return next, nil
}

// ActiveAfter is the employee active flag implied by a status.
func ActiveAfter(status model.AttendanceStatus) bool {
	return status == model.StatusWorking
}

func openWork(r *model.AttendanceRecord, now time.Time) {
	r.WorkPeriods = append(r.WorkPeriods, model.WorkPeriod{Start: now})
}

func closeWork(r *model.AttendanceRecord, now time.Time) {
	r.WorkPeriods[len(r.WorkPeriods)-1].End = &now
}

func closeBreak(r *model.AttendanceRecord, now time.Time) {
	r.Breaks[len(r.Breaks)-1].BreakEnd = &now
}
