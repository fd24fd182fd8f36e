package repository

import (
	"context"
	"errors"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"crm.service/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const employeeColumns = `id, custom_id, first_name, last_name, email, language, location, is_active, created_at, updated_at`

// PostgresEmployeeRepository is the employee directory on PostgreSQL.
type PostgresEmployeeRepository struct {
	pool database.Queryer
}

var _ EmployeeRepository = (*PostgresEmployeeRepository)(nil)

func NewEmployeeRepository(pool database.Queryer) *PostgresEmployeeRepository {
	return &PostgresEmployeeRepository{pool: pool}
}

func (r *PostgresEmployeeRepository) Create(ctx context.Context, e *model.Employee) error {
	exec := database.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO employees (`+employeeColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.CustomID, e.FirstName, e.LastName, e.Email,
		string(e.Language), string(e.Location), e.Active, e.CreatedAt, e.UpdatedAt,
	)
	return translatePgError(err, "employee not found")
}

func (r *PostgresEmployeeRepository) FindByID(ctx context.Context, id string) (*model.Employee, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", id))

	exec := database.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)

	e, err := scanEmployee(row)
	if err != nil {
		return nil, translatePgError(err, "employee "+id+" not found")
	}
	return e, nil
}

func (r *PostgresEmployeeRepository) FindByFullName(ctx context.Context, firstName, lastName string) (*model.Employee, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)
         ORDER BY id
         LIMIT 1`, firstName, lastName)

	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translatePgError(err, "")
	}
	return e, nil
}

func (r *PostgresEmployeeRepository) List(ctx context.Context) ([]model.Employee, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, translatePgError(err, "")
	}
	defer rows.Close()

	employees := []model.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, translatePgError(err, "")
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "")
	}
	return employees, nil
}

func (r *PostgresEmployeeRepository) SetActive(ctx context.Context, id string, active bool) error {
	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE employees SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return translatePgError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("employee %s not found", id)
	}
	return nil
}

// Delete removes the employee row. Leads still pointing at it make the
// foreign key fail, which surfaces as a state conflict.
func (r *PostgresEmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
		return apperror.StateConflict("employee %s still owns leads", id)
	}
	if err != nil {
		return translatePgError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("employee %s not found", id)
	}
	return nil
}

func scanEmployee(row pgx.Row) (*model.Employee, error) {
	var (
		e         model.Employee
		lang, loc string
	)
	if err := row.Scan(
		&e.ID, &e.CustomID, &e.FirstName, &e.LastName, &e.Email,
		&lang, &loc, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Language = model.Language(lang)
	e.Location = model.Location(loc)
	return &e, nil
}
