package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm.service/internal/core/model"
	"crm.service/pkg/apperror"
	"crm.service/pkg/database"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const attendanceColumns = `id, employee_id, day, first_check_in, final_check_out, work_periods, breaks,
               version, export_status, export_retry_count, created_at, updated_at`

// PostgresAttendanceRepository keeps one row per employee and day. Work and
// break periods are JSONB arrays rewritten as a whole on every transition.
type PostgresAttendanceRepository struct {
	pool database.Queryer
}

var _ AttendanceRepository = (*PostgresAttendanceRepository)(nil)

func NewAttendanceRepository(pool database.Queryer) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{pool: pool}
}

func (r *PostgresAttendanceRepository) FindByEmployeeAndDay(ctx context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", employeeID))

	exec := database.QueryerFromContext(ctx, r.pool)
	rec, err := scanAttendance(exec.QueryRow(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance_records
         WHERE employee_id = $1 AND day = $2`, employeeID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translatePgError(err, "")
	}
	return rec, nil
}

func (r *PostgresAttendanceRepository) FindByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	rec, err := scanAttendance(exec.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendance_records WHERE id = $1`, id))
	if err != nil {
		return nil, translatePgError(err, "attendance record "+id+" not found")
	}
	return rec, nil
}

func (r *PostgresAttendanceRepository) ListByEmployee(ctx context.Context, employeeID string) ([]model.AttendanceRecord, error) {
	exec := database.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendance_records
         WHERE employee_id = $1
         ORDER BY day`, employeeID)
	if err != nil {
		return nil, translatePgError(err, "")
	}
	defer rows.Close()

	records := []model.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, translatePgError(err, "")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "")
	}
	return records, nil
}

// Create inserts the first record of a day. Losing the race against another
// first event of the same day inserts nothing and is reported as a conflict.
func (r *PostgresAttendanceRepository) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	work, breaks, err := marshalPeriods(rec)
	if err != nil {
		return err
	}

	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        INSERT INTO attendance_records
               (id, employee_id, day, first_check_in, final_check_out, work_periods, breaks, version, export_status, export_retry_count)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, 0)
        ON CONFLICT ON CONSTRAINT attendance_employee_day_key DO NOTHING`,
		rec.ID, rec.EmployeeID, rec.Day, rec.FirstCheckIn, rec.FinalCheckOut, work, breaks, string(rec.ExportStatus))
	if err != nil {
		return translatePgError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.StateConflict("attendance for this day was recorded concurrently, retry")
	}
	rec.Version = 1
	return nil
}

func (r *PostgresAttendanceRepository) CompareAndSwap(ctx context.Context, rec *model.AttendanceRecord, expectedVersion int64) error {
	work, breaks, err := marshalPeriods(rec)
	if err != nil {
		return err
	}

	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE attendance_records
           SET first_check_in = $1, final_check_out = $2, work_periods = $3, breaks = $4,
               version = version + 1, updated_at = NOW()
         WHERE id = $5 AND version = $6`,
		rec.FirstCheckIn, rec.FinalCheckOut, work, breaks, rec.ID, expectedVersion)
	if err != nil {
		return translatePgError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.StateConflict("attendance record changed concurrently, retry")
	}
	rec.Version = expectedVersion + 1
	return nil
}

func (r *PostgresAttendanceRepository) UpdateExportStatus(ctx context.Context, id string, status model.ExportStatus, retryCount int) error {
	exec := database.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE attendance_records
           SET export_status = $1, export_retry_count = $2
         WHERE id = $3`, string(status), retryCount, id)
	if err != nil {
		return translatePgError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("attendance record %s not found", id)
	}
	return nil
}

func marshalPeriods(rec *model.AttendanceRecord) ([]byte, []byte, error) {
	work := rec.WorkPeriods
	if work == nil {
		work = []model.WorkPeriod{}
	}
	breaks := rec.Breaks
	if breaks == nil {
		breaks = []model.BreakPeriod{}
	}

	w, err := json.Marshal(work)
	if err != nil {
		return nil, nil, apperror.Storage(err, "encode work periods")
	}
	b, err := json.Marshal(breaks)
	if err != nil {
		return nil, nil, apperror.Storage(err, "encode breaks")
	}
	return w, b, nil
}

func scanAttendance(row pgx.Row) (*model.AttendanceRecord, error) {
	var (
		rec          model.AttendanceRecord
		work, breaks []byte
		exportStatus string
	)
	if err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.Day, &rec.FirstCheckIn, &rec.FinalCheckOut, &work, &breaks,
		&rec.Version, &exportStatus, &rec.ExportRetryCount, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(work, &rec.WorkPeriods); err != nil {
		return nil, fmt.Errorf("decode work periods of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(breaks, &rec.Breaks); err != nil {
		return nil, fmt.Errorf("decode breaks of %s: %w", rec.ID, err)
	}
	d := rec.Day.UTC()
	rec.Day = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	rec.ExportStatus = model.ExportStatus(exportStatus)
	return &rec, nil
}
