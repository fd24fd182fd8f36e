package core

import (
	"context"
	"math"
	"sort"
	"time"

	"crm.service/internal/core/model"
	"crm.service/internal/metrics"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttendanceService applies attendance events for "today" (UTC) and keeps the
// employee's active flag in step with the record.
type AttendanceService struct {
	tx        repository.TransactionManager
	employees repository.EmployeeRepository
	records   repository.AttendanceRepository
	publisher messaging.EventPublisher
	clock     Clock
}

func NewAttendanceService(
	tx repository.TransactionManager,
	employees repository.EmployeeRepository,
	records repository.AttendanceRepository,
	publisher messaging.EventPublisher,
	clock Clock,
) *AttendanceService {
	return &AttendanceService{
		tx:        tx,
		employees: employees,
		records:   records,
		publisher: publisher,
		clock:     clock,
	}
}

func (s *AttendanceService) CheckIn(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	return s.apply(ctx, employeeID, model.EventCheckIn)
}

func (s *AttendanceService) StartBreak(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	return s.apply(ctx, employeeID, model.EventStartBreak)
}

func (s *AttendanceService) EndBreak(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	return s.apply(ctx, employeeID, model.EventEndBreak)
}

func (s *AttendanceService) FinalCheckOut(ctx context.Context, employeeID string) (*model.AttendanceRecord, error) {
	return s.apply(ctx, employeeID, model.EventFinalCheckOut)
}

// apply runs one transition as a single unit: the record write is conditional
// on the version that was read, and the active flag is written in the same
// transaction.
func (s *AttendanceService) apply(ctx context.Context, employeeID string, event model.AttendanceEvent) (*model.AttendanceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.employeeId", employeeID),
		attribute.String("app.attendanceEvent", string(event)),
	)

	now := s.clock.Now().UTC()
	day := DayOf(now)

	var result model.AttendanceRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
			return err
		}

		current, err := s.records.FindByEmployeeAndDay(ctx, employeeID, day)
		if err != nil {
			return err
		}

		next, err := Transition(current, event, now)
		if err != nil {
			return err
		}

		if current == nil {
			next.ID = newID()
			next.EmployeeID = employeeID
			next.Day = day
			next.ExportStatus = model.ExportPending
			if err := s.records.Create(ctx, &next); err != nil {
				return err
			}
		} else if err := s.records.CompareAndSwap(ctx, &next, current.Version); err != nil {
			return err
		}

		if err := s.employees.SetActive(ctx, employeeID, ActiveAfter(StatusOf(&next))); err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		if apperror.IsKind(err, apperror.KindStateConflict) {
			metrics.AttendanceConflicts.WithLabelValues(string(event)).Inc()
			log.Ctx(ctx).Info().Str("employee_id", employeeID).Str("event", string(event)).Err(err).Msg("Attendance transition rejected")
		}
		return nil, err
	}

	metrics.AttendanceTransitions.WithLabelValues(string(event)).Inc()
	log.Ctx(ctx).Debug().Str("employee_id", employeeID).Str("event", string(event)).Msg("Attendance transition applied")

	if event == model.EventFinalCheckOut {
		s.publishDayClosed(ctx, result)
	}

	return &result, nil
}

// publishDayClosed hands the closed day to the timesheet export and the
// checkout summary e-mail. The day is already committed, so failures are
// only logged.
func (s *AttendanceService) publishDayClosed(ctx context.Context, rec model.AttendanceRecord) {
	worked, onBreak := rec.Totals()

	dayClosed := messaging.DayClosedEvent{
		AttendanceID:  rec.ID,
		EmployeeID:    rec.EmployeeID,
		Day:           rec.Day.Format(model.ScheduleDateLayout),
		WorkedMinutes: int(worked.Minutes()),
		BreakMinutes:  int(onBreak.Minutes()),
		FirstCheckIn:  derefTime(rec.FirstCheckIn),
		FinalCheckOut: derefTime(rec.FinalCheckOut),
	}
	if err := s.publisher.PublishTimesheet(ctx, dayClosed); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("attendance_id", rec.ID).Msg("Failed to publish day closed event")
	}

	summary := messaging.NotificationEvent{
		Kind:        messaging.NotificationCheckoutSummary,
		EmployeeID:  rec.EmployeeID,
		HoursWorked: math.Round(worked.Hours()*100) / 100,
		OccurredAt:  s.clock.Now(),
	}
	if err := s.publisher.PublishNotification(ctx, summary); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("attendance_id", rec.ID).Msg("Failed to publish checkout summary")
	}
}

// GetAttendance returns the record of the given day (today when day is nil)
// with its derived status. A day without a record yields an empty record.
func (s *AttendanceService) GetAttendance(ctx context.Context, employeeID string, day *time.Time) (model.AttendanceSnapshot, error) {
	emp, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		return model.AttendanceSnapshot{}, err
	}

	d := DayOf(s.clock.Now())
	if day != nil {
		d = DayOf(*day)
	}

	rec, err := s.records.FindByEmployeeAndDay(ctx, employeeID, d)
	if err != nil {
		return model.AttendanceSnapshot{}, err
	}

	snap := model.AttendanceSnapshot{Status: StatusOf(rec), Active: emp.Active}
	if rec == nil {
		snap.Record = model.AttendanceRecord{
			EmployeeID:  employeeID,
			Day:         d,
			WorkPeriods: []model.WorkPeriod{},
			Breaks:      []model.BreakPeriod{},
		}
		return snap, nil
	}

	snap.Record = *rec
	if snap.Status == model.StatusOnBreak {
		snap.OnBreak = true
		start := rec.Breaks[len(rec.Breaks)-1].BreakStart
		snap.BreakStartTime = &start
	}
	return snap, nil
}

// GetBreaksHistory lists every completed break of the employee, newest first.
func (s *AttendanceService) GetBreaksHistory(ctx context.Context, employeeID string) ([]model.CompletedBreak, error) {
	if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
		return nil, err
	}

	records, err := s.records.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	history := []model.CompletedBreak{}
	for _, rec := range records {
		for _, b := range rec.Breaks {
			if b.BreakEnd == nil {
				continue
			}
			history = append(history, model.CompletedBreak{
				Day:        rec.Day,
				BreakStart: b.BreakStart,
				BreakEnd:   *b.BreakEnd,
				Duration:   b.BreakEnd.Sub(b.BreakStart),
			})
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].BreakStart.After(history[j].BreakStart)
	})
	return history, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
