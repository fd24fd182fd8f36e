package core

import (
	"context"
	"net/mail"
	"strings"

	"crm.service/internal/core/model"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CreateEmployeeInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Language  string `json:"language"`
	Location  string `json:"location"`
}

type EmployeeService struct {
	tx           repository.TransactionManager
	employees    repository.EmployeeRepository
	leads        repository.LeadRepository
	redistribute *RedistributionEngine
	publisher    messaging.EventPublisher
	clock        Clock
}

func NewEmployeeService(
	tx repository.TransactionManager,
	employees repository.EmployeeRepository,
	leads repository.LeadRepository,
	publisher messaging.EventPublisher,
	clock Clock,
) *EmployeeService {
	return &EmployeeService{
		tx:           tx,
		employees:    employees,
		leads:        leads,
		redistribute: NewRedistributionEngine(employees, leads, clock),
		publisher:    publisher,
		clock:        clock,
	}
}

// CreateEmployee adds an employee to the directory. Language and location
// default to English and Delhi.
func (s *EmployeeService) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*model.Employee, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" {
		return nil, apperror.Validation("firstName", "firstName is required")
	}
	if last == "" {
		return nil, apperror.Validation("lastName", "lastName is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation("email", "email %q is invalid", in.Email)
	}

	lang := model.LanguageEnglish
	if in.Language != "" {
		l, ok := model.ParseLanguage(in.Language)
		if !ok {
			return nil, apperror.Validation("language", "language %q is not supported", in.Language)
		}
		lang = l
	}
	loc := model.LocationDelhi
	if in.Location != "" {
		l, ok := model.ParseLocation(in.Location)
		if !ok {
			return nil, apperror.Validation("location", "location %q is not supported", in.Location)
		}
		loc = l
	}

	id := newID()
	now := s.clock.Now().UTC()
	emp := &model.Employee{
		ID:        id,
		CustomID:  customID(id),
		FirstName: first,
		LastName:  last,
		Email:     email,
		Language:  lang,
		Location:  loc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.employees.Create(ctx, emp); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("employee_id", emp.ID).Str("custom_id", emp.CustomID).Msg("Employee created")
	return emp, nil
}

func (s *EmployeeService) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	return s.employees.FindByID(ctx, id)
}

func (s *EmployeeService) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	return s.employees.List(ctx)
}

// RemoveEmployee redistributes the employee's pending leads, releases their
// closed ones and deletes them, all in one transaction. Nothing is deleted
// unless redistribution completed.
func (s *EmployeeService) RemoveEmployee(ctx context.Context, id string) (model.RemovalReport, error) {
	var (
		report model.RemovalReport
		moves  []LeadMove
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.employees.FindByID(ctx, id); err != nil {
			return err
		}

		res, err := s.redistribute.Redistribute(ctx, id)
		if err != nil {
			return err
		}

		released, err := s.leads.ReleaseClosed(ctx, id)
		if err != nil {
			return err
		}

		if err := s.employees.Delete(ctx, id); err != nil {
			return err
		}

		moves = res.Moves
		report = model.RemovalReport{
			Moved:            len(res.Moves),
			Unassigned:       res.Unassigned,
			Released:         released,
			SchedulesCleared: res.SchedulesCleared,
		}
		return nil
	})
	if err != nil {
		return model.RemovalReport{}, err
	}

	for _, m := range moves {
		event := messaging.NotificationEvent{
			Kind:       messaging.NotificationLeadAssigned,
			EmployeeID: m.To,
			LeadID:     m.LeadID,
			LeadName:   m.LeadName,
			OccurredAt: s.clock.Now(),
		}
		if err := s.publisher.PublishNotification(ctx, event); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("lead_id", m.LeadID).Msg("Failed to publish lead reassignment")
		}
	}

	log.Ctx(ctx).Info().
		Str("employee_id", id).
		Int("moved", report.Moved).
		Int("unassigned", report.Unassigned).
		Int("released", report.Released).
		Msg("Employee removed")
	return report, nil
}

// customID derives a short human readable id from the uuid.
func customID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return "EMP-" + strings.ToUpper(id)
	}
	return "EMP-" + strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:8])
}
