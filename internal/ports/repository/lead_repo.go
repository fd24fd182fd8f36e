package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"crm.service/pkg/database"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const leadColumns = `id, name, email, phone, language, location, lead_type, status, assigned_to,
               scheduled_date, scheduled_time, received_date, closed_at, version, created_at, updated_at`

// PostgresLeadRepository stores leads. Ownership changes are single
// conditional UPDATEs; the row count tells the caller whether it won.
type PostgresLeadRepository struct {
	pool database.Queryer
}

var _ LeadRepository = (*PostgresLeadRepository)(nil)

func NewLeadRepository(pool database.Queryer) *PostgresLeadRepository {
	return &PostgresLeadRepository{pool: pool}
}

func (r *PostgresLeadRepository) Create(ctx context.Context, l *model.Lead) error {
	date, clock := scheduleArgs(l.Schedule)

	exec := database.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO leads (`+leadColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		l.ID, l.Name, l.Email, l.Phone, string(l.Language), string(l.Location), string(l.Type), string(l.Status),
		l.AssignedTo, date, clock, l.ReceivedDate, l.ClosedAt, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	return translatePgError(err, "")
}

func (r *PostgresLeadRepository) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.leadId", id))

	exec := database.QueryerFromContext(ctx, r.pool)
	l, err := scanLead(exec.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		return nil, translatePgError(err, "lead "+id+" not found")
	}
	return l, nil
}

func (r *PostgresLeadRepository) List(ctx context.Context, f model.LeadFilter) (model.LeadPage, error) {
	args := make([]any, 0, 8)
	conditions := make([]string, 0, 6)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != "" {
		conditions = append(conditions, "status = "+next(string(f.Status)))
	}
	if f.AssignedTo != "" {
		conditions = append(conditions, "assigned_to = "+next(f.AssignedTo))
	}
	if f.Language != "" {
		conditions = append(conditions, "language = "+next(string(f.Language)))
	}
	if f.Location != "" {
		conditions = append(conditions, "location = "+next(string(f.Location)))
	}
	if f.Type != "" {
		conditions = append(conditions, "lead_type = "+next(string(f.Type)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := next("%" + s + "%")
		conditions = append(conditions, "(name ILIKE "+p+" OR email ILIKE "+p+" OR phone ILIKE "+p+")")
	}
	if f.ScheduledOnly {
		conditions = append(conditions, "scheduled_date IS NOT NULL")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	exec := database.QueryerFromContext(ctx, r.pool)

	var total int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+whereClause, args...).Scan(&total); err != nil {
		return model.LeadPage{}, translatePgError(err, "")
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + whereClause +
		` ORDER BY received_date DESC, id LIMIT ` + next(f.Limit) + ` OFFSET ` + next(f.Offset)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return model.LeadPage{}, translatePgError(err, "")
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return model.LeadPage{}, err
	}
	return model.LeadPage{Leads: leads, Total: total}, nil
}

func (r *PostgresLeadRepository) ContactTaken(ctx context.Context, email, phone *string) (bool, bool, error) {
	if email == nil && phone == nil {
		return false, false, nil
	}

	var emailTaken, phoneTaken bool
	exec := database.QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
        SELECT COALESCE(bool_or(email = $1), false), COALESCE(bool_or(phone = $2), false)
          FROM leads
         WHERE email = $1 OR phone = $2`, email, phone).Scan(&emailTaken, &phoneTaken)
	if err != nil {
		return false, false, translatePgError(err, "")
	}
	return emailTaken, phoneTaken, nil
}

func (r *PostgresLeadRepository) PendingCounts(ctx context.Context, employeeIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(employeeIDs))
	for _, id := range employeeIDs {
		counts[id] = 0
	}
	if len(employeeIDs) == 0 {
		return counts, nil
	}

	exec := database.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT assigned_to, COUNT(*)
          FROM leads
         WHERE status = 'Pending' AND assigned_to = ANY($1)
         GROUP BY assigned_to`, employeeIDs)
	if err != nil {
		return nil, translatePgError(err, "")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, translatePgError(err, "")
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "")
	}
	return counts, nil
}

// PendingByAssignee locks the returned rows until the surrounding
// transaction ends.
func (r *PostgresLeadRepository) PendingByAssignee(ctx context.Context, employeeID string) ([]model.Lead, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+leadColumns+`
          FROM leads
         WHERE assigned_to = $1 AND status = 'Pending'
         ORDER BY received_date, id
           FOR UPDATE`, employeeID)
	if err != nil {
		return nil, translatePgError(err, "")
	}
	return collectLeads(rows)
}

func (r *PostgresLeadRepository) AssignIfUnassigned(ctx context.Context, leadID, employeeID string) (bool, error) {
	return r.execOne(ctx, `
        UPDATE leads
           SET assigned_to = $2, version = version + 1, updated_at = NOW()
         WHERE id = $1 AND assigned_to IS NULL`, leadID, employeeID)
}

func (r *PostgresLeadRepository) Reassign(ctx context.Context, leadID, from, to string) (bool, error) {
	return r.execOne(ctx, `
        UPDATE leads
           SET assigned_to = $3, version = version + 1, updated_at = NOW()
         WHERE id = $1 AND assigned_to = $2 AND status = 'Pending'`, leadID, from, to)
}

func (r *PostgresLeadRepository) UnassignPending(ctx context.Context, employeeID string) (int, error) {
	return r.clearOwner(ctx, employeeID, model.LeadPending)
}

func (r *PostgresLeadRepository) ReleaseClosed(ctx context.Context, employeeID string) (int, error) {
	return r.clearOwner(ctx, employeeID, model.LeadClosed)
}

func (r *PostgresLeadRepository) clearOwner(ctx context.Context, employeeID string, status model.LeadStatus) (int, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE leads
           SET assigned_to = NULL, version = version + 1, updated_at = NOW()
         WHERE assigned_to = $1 AND status = $2`, employeeID, string(status))
	if err != nil {
		return 0, translatePgError(err, "")
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresLeadRepository) ScheduleTaken(ctx context.Context, employeeID, excludeLeadID string, s model.Schedule) (bool, error) {
	var taken bool
	exec := database.QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
              FROM leads
             WHERE assigned_to = $1
               AND id <> $2
               AND status <> 'Closed'
               AND scheduled_date = $3
               AND scheduled_time = $4
        )`, employeeID, excludeLeadID, s.Date, s.Time).Scan(&taken)
	if err != nil {
		return false, translatePgError(err, "")
	}
	return taken, nil
}

func (r *PostgresLeadRepository) Update(ctx context.Context, l *model.Lead, expectedVersion int64) error {
	date, clock := scheduleArgs(l.Schedule)

	ok, err := r.execOne(ctx, `
        UPDATE leads
           SET status = $1, lead_type = $2, scheduled_date = $3, scheduled_time = $4,
               closed_at = $5, updated_at = $6, version = version + 1
         WHERE id = $7 AND version = $8`,
		string(l.Status), string(l.Type), date, clock, l.ClosedAt, l.UpdatedAt, l.ID, expectedVersion)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.StateConflict("lead %s was modified concurrently, reload and retry", l.ID)
	}
	l.Version = expectedVersion + 1
	return nil
}

// execOne runs a conditional write and reports whether exactly one row changed.
func (r *PostgresLeadRepository) execOne(ctx context.Context, sql string, args ...any) (bool, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, sql, args...)
	if err != nil {
		return false, translatePgError(err, "")
	}
	return tag.RowsAffected() == 1, nil
}

func collectLeads(rows pgx.Rows) ([]model.Lead, error) {
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, translatePgError(err, "")
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "")
	}
	return leads, nil
}

func scanLead(row pgx.Row) (*model.Lead, error) {
	var (
		l                           model.Lead
		lang, loc, leadType, status string
		scheduledDate               *time.Time
		scheduledTime               *string
	)
	if err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &lang, &loc, &leadType, &status, &l.AssignedTo,
		&scheduledDate, &scheduledTime, &l.ReceivedDate, &l.ClosedAt, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Language = model.Language(lang)
	l.Location = model.Location(loc)
	l.Type = model.LeadType(leadType)
	l.Status = model.LeadStatus(status)
	if scheduledDate != nil && scheduledTime != nil {
		d := scheduledDate.UTC()
		l.Schedule = &model.Schedule{
			Date: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Time: *scheduledTime,
		}
	}
	return &l, nil
}

func scheduleArgs(s *model.Schedule) (any, any) {
	if s == nil {
		return nil, nil
	}
	return s.Date, s.Time
}
