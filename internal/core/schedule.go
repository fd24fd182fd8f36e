package core

import (
	"context"

	"crm.service/internal/core/model"
	"crm.service/internal/metrics"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
)

// ParseScheduleUpdate interprets an optional date/time pair from an update.
// Both absent: no change. Both empty: clear. Both set: parse. Anything else
// is rejected, so a schedule is never half set or half cleared.
func ParseScheduleUpdate(date, clock *string) (touched bool, s *model.Schedule, err error) {
	if date == nil && clock == nil {
		return false, nil, nil
	}
	if date == nil || clock == nil || (*date == "") != (*clock == "") {
		field := "scheduledDate"
		if date != nil && *date != "" {
			field = "scheduledTime"
		}
		return false, nil, apperror.Validation(field, "scheduledDate and scheduledTime must be provided together")
	}
	if *date == "" {
		return true, nil, nil
	}

	parsed, perr := model.ParseSchedule(*date, *clock)
	if perr != nil {
		return false, nil, apperror.Validation("schedule", "%s", perr.Error())
	}
	return true, &parsed, nil
}

// ScheduleChecker guards follow-up slots: one non-closed lead per employee
// per instant, and no closing ahead of a booked slot.
type ScheduleChecker struct {
	leads repository.LeadRepository
	clock Clock
}

func NewScheduleChecker(leads repository.LeadRepository, clock Clock) *ScheduleChecker {
	return &ScheduleChecker{leads: leads, clock: clock}
}

// CheckAndSet sets lead's schedule to s, or clears it when s is nil. The slot
// is checked against the assignee's other non-closed leads; unassigned leads
// have nobody to collide with.
func (c *ScheduleChecker) CheckAndSet(ctx context.Context, lead *model.Lead, s *model.Schedule) error {
	if s == nil {
		lead.Schedule = nil
		return nil
	}

	if lead.AssignedTo != nil {
		taken, err := c.leads.ScheduleTaken(ctx, *lead.AssignedTo, lead.ID, *s)
		if err != nil {
			return err
		}
		if taken {
			metrics.ScheduleConflicts.Inc()
			return apperror.StateConflict("another lead is scheduled at %s %s for this employee",
				s.Date.Format(model.ScheduleDateLayout), s.Time)
		}
	}

	lead.Schedule = s
	return nil
}

// CheckClose rejects closing a lead whose schedule is still in the future.
func (c *ScheduleChecker) CheckClose(lead *model.Lead) error {
	if lead.Schedule == nil {
		return nil
	}
	if lead.Schedule.Instant().After(c.clock.Now()) {
		return apperror.StateConflict("lead cannot be closed while scheduled in the future")
	}
	return nil
}
