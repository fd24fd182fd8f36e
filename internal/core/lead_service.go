package core

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"crm.service/internal/core/model"
	"crm.service/internal/metrics"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/apperror"
	"github.com/rs/zerolog/log"
)

type CreateLeadInput struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Language     string     `json:"language"`
	Location     string     `json:"location"`
	LeadType     string     `json:"leadType"`
	ReceivedDate *time.Time `json:"receivedDate"`
	// AssigneeID skips the assignment engine when set.
	AssigneeID string `json:"assigneeId"`
}

// UpdateLeadInput carries the mutable fields of a lead. The identity fields
// are present only so attempts to change them can be rejected.
type UpdateLeadInput struct {
	Status        *string `json:"status"`
	LeadType      *string `json:"leadType"`
	ScheduledDate *string `json:"scheduledDate"`
	ScheduledTime *string `json:"scheduledTime"`

	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	ReceivedDate *string `json:"receivedDate"`
}

type LeadService struct {
	tx        repository.TransactionManager
	employees repository.EmployeeRepository
	leads     repository.LeadRepository
	engine    *AssignmentEngine
	schedule  *ScheduleChecker
	publisher messaging.EventPublisher
	clock     Clock
}

func NewLeadService(
	tx repository.TransactionManager,
	employees repository.EmployeeRepository,
	leads repository.LeadRepository,
	publisher messaging.EventPublisher,
	clock Clock,
) *LeadService {
	return &LeadService{
		tx:        tx,
		employees: employees,
		leads:     leads,
		engine:    NewAssignmentEngine(employees, leads),
		schedule:  NewScheduleChecker(leads, clock),
		publisher: publisher,
		clock:     clock,
	}
}

// CreateLead validates and stores a lead, then assigns it through the
// engine unless an assignee was given.
func (s *LeadService) CreateLead(ctx context.Context, in CreateLeadInput) (*model.Lead, error) {
	lead, err := s.newLead(in)
	if err != nil {
		return nil, err
	}

	var direct *string
	if id := strings.TrimSpace(in.AssigneeID); id != "" {
		direct = &id
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.store(ctx, lead, direct, true)
	}); err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, lead)
	return lead, nil
}

func (s *LeadService) newLead(in CreateLeadInput) (*model.Lead, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("name", "name is required")
	}
	lang, ok := model.ParseLanguage(in.Language)
	if !ok {
		return nil, apperror.Validation("language", "language %q is not supported", in.Language)
	}
	loc, ok := model.ParseLocation(in.Location)
	if !ok {
		return nil, apperror.Validation("location", "location %q is not supported", in.Location)
	}

	leadType := model.LeadWarm
	if in.LeadType != "" {
		leadType = model.LeadType(in.LeadType)
		if !leadType.Valid() {
			return nil, apperror.Validation("leadType", "leadType must be Hot, Warm or Cold")
		}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	if email == "" && phone == "" {
		return nil, apperror.Validation("email", "at least one of email or phone is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.Validation("email", "email %q is invalid", in.Email)
		}
	}

	now := s.clock.Now().UTC()
	received := now
	if in.ReceivedDate != nil && !in.ReceivedDate.IsZero() {
		received = in.ReceivedDate.UTC()
	}

	return &model.Lead{
		ID:           newID(),
		Name:         name,
		Email:        optional(email),
		Phone:        optional(phone),
		Language:     lang,
		Location:     loc,
		Type:         leadType,
		Status:       model.LeadPending,
		ReceivedDate: received,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// store inserts lead after the uniqueness checks. A direct assignee must
// exist; with autoAssign the engine runs for leads left without owner.
func (s *LeadService) store(ctx context.Context, lead *model.Lead, direct *string, autoAssign bool) error {
	emailTaken, phoneTaken, err := s.leads.ContactTaken(ctx, lead.Email, lead.Phone)
	if err != nil {
		return err
	}
	if emailTaken {
		return apperror.Validation("email", "lead with email %s already exists", *lead.Email)
	}
	if phoneTaken {
		return apperror.Validation("phone", "lead with phone %s already exists", *lead.Phone)
	}

	if direct != nil {
		if _, err := s.employees.FindByID(ctx, *direct); err != nil {
			return err
		}
		lead.AssignedTo = direct
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return err
	}

	if direct != nil {
		metrics.LeadsAssigned.WithLabelValues("direct").Inc()
		return nil
	}
	if !autoAssign {
		return nil
	}
	_, err = s.engine.Assign(ctx, lead)
	return err
}

func (s *LeadService) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	return s.leads.FindByID(ctx, id)
}

func (s *LeadService) ListLeads(ctx context.Context, f model.LeadFilter) (model.LeadPage, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status != "" && !f.Status.Valid() {
		return model.LeadPage{}, apperror.Validation("status", "status must be Pending or Closed")
	}
	if f.Type != "" && !f.Type.Valid() {
		return model.LeadPage{}, apperror.Validation("leadType", "leadType must be Hot, Warm or Cold")
	}
	return s.leads.List(ctx, f)
}

// UpdateLead changes status, type and schedule. The whole update is
// rejected on any violation and written with a version check.
func (s *LeadService) UpdateLead(ctx context.Context, id string, in UpdateLeadInput) (*model.Lead, error) {
	for field, v := range map[string]*string{"name": in.Name, "email": in.Email, "phone": in.Phone, "receivedDate": in.ReceivedDate} {
		if v != nil {
			return nil, apperror.Validation(field, "name, email, phone and receivedDate cannot be updated")
		}
	}

	touched, sched, err := ParseScheduleUpdate(in.ScheduledDate, in.ScheduledTime)
	if err != nil {
		return nil, err
	}

	var status model.LeadStatus
	if in.Status != nil {
		status = model.LeadStatus(*in.Status)
		if !status.Valid() {
			return nil, apperror.Validation("status", "status must be Pending or Closed")
		}
	}
	var leadType model.LeadType
	if in.LeadType != nil {
		leadType = model.LeadType(*in.LeadType)
		if !leadType.Valid() {
			return nil, apperror.Validation("leadType", "leadType must be Hot, Warm or Cold")
		}
	}

	var updated *model.Lead
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.leads.FindByID(ctx, id)
		if err != nil {
			return err
		}
		expected := lead.Version

		if status == model.LeadPending && lead.Status == model.LeadClosed {
			return apperror.StateConflict("closed leads cannot be reopened")
		}

		if touched {
			if err := s.schedule.CheckAndSet(ctx, lead, sched); err != nil {
				return err
			}
		}

		if status == model.LeadClosed && lead.Status != model.LeadClosed {
			if err := s.schedule.CheckClose(lead); err != nil {
				return err
			}
			closedAt := s.clock.Now().UTC()
			lead.Status = model.LeadClosed
			lead.ClosedAt = &closedAt
		}

		if leadType != "" {
			lead.Type = leadType
		}

		lead.UpdatedAt = s.clock.Now().UTC()
		if err := s.leads.Update(ctx, lead, expected); err != nil {
			return err
		}
		updated = lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ImportLeads stores a batch of rows. Rows are validated first; each valid
// row then commits on its own so one bad row does not sink the batch.
func (s *LeadService) ImportLeads(ctx context.Context, rows []model.ImportRow) (model.ImportReport, error) {
	report := model.ImportReport{Total: len(rows), Errors: []string{}, Discarded: []string{}}

	type candidate struct {
		row  model.ImportRow
		lead *model.Lead
	}
	var valid []candidate

	for _, row := range rows {
		in := CreateLeadInput{
			Name:     row.Name,
			Email:    row.Email,
			Phone:    row.Phone,
			Language: row.Language,
			Location: row.Location,
			LeadType: row.LeadType,
		}
		if strings.TrimSpace(row.ReceivedDate) != "" {
			d, err := parseReceivedDate(row.ReceivedDate)
			if err != nil {
				report.Discarded = append(report.Discarded, fmt.Sprintf("line %d: invalid receivedDate %q", row.Line, row.ReceivedDate))
				continue
			}
			in.ReceivedDate = &d
		}

		lead, err := s.newLead(in)
		if err != nil {
			report.Discarded = append(report.Discarded, fmt.Sprintf("line %d: %s", row.Line, apperror.Public(err).Message))
			continue
		}
		valid = append(valid, candidate{row: row, lead: lead})
	}

	if len(valid) == 0 {
		return report, apperror.Validation("csvData", "no valid leads found in the import")
	}
	report.Valid = len(valid)

	for _, c := range valid {
		var direct *string
		autoAssign := true

		if name := strings.TrimSpace(c.row.AssignedTo); name != "" {
			autoAssign = false
			first, last := splitFullName(name)
			emp, err := s.employees.FindByFullName(ctx, first, last)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: %s", c.row.Line, apperror.Public(err).Message))
				continue
			}
			if emp != nil {
				direct = &emp.ID
			} else {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: employee %q not found, lead is unassigned", c.row.Line, name))
			}
		}

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.store(ctx, c.lead, direct, autoAssign)
		})
		if err != nil {
			if !apperror.IsKind(err, apperror.KindValidation) {
				log.Ctx(ctx).Error().Err(err).Int("line", c.row.Line).Msg("Failed to import lead")
			}
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %s", c.row.Line, apperror.Public(err).Message))
			continue
		}

		report.Inserted++
		if c.lead.AssignedTo == nil {
			report.Unassigned++
		}
		s.notifyAssigned(ctx, c.lead)
	}

	log.Ctx(ctx).Info().
		Int("total", report.Total).
		Int("inserted", report.Inserted).
		Int("discarded", len(report.Discarded)).
		Msg("Lead import finished")
	return report, nil
}

func (s *LeadService) notifyAssigned(ctx context.Context, lead *model.Lead) {
	if lead.AssignedTo == nil {
		return
	}
	event := messaging.NotificationEvent{
		Kind:       messaging.NotificationLeadAssigned,
		EmployeeID: *lead.AssignedTo,
		LeadID:     lead.ID,
		LeadName:   lead.Name,
		OccurredAt: s.clock.Now(),
	}
	if err := s.publisher.PublishNotification(ctx, event); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("lead_id", lead.ID).Msg("Failed to publish lead assignment")
	}
}

var receivedDateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02/01/2006"}

func parseReceivedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range receivedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// splitFullName splits "First Last Name" into "First" and "Last Name". A
// single word is used as both.
func splitFullName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
