package repository

import (
	"errors"

	"crm.service/pkg/apperror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	// invalidTextCode is raised when an id is not a valid uuid.
	invalidTextCode = "22P02"
)

// uniqueFields maps unique constraints to the request field they guard.
var uniqueFields = map[string]string{
	"employees_email_key":     "email",
	"employees_custom_id_key": "customId",
	"leads_email_key":         "email",
	"leads_phone_key":         "phone",
}

// conflictConstraints maps unique constraints whose violation is a state
// conflict rather than a bad field.
var conflictConstraints = map[string]string{
	"leads_pending_slot_key":      "employee already has a lead scheduled at that time",
	"attendance_employee_day_key": "attendance record for this day already exists",
}

// translatePgError maps driver errors onto the application taxonomy.
// notFound is used for pgx.ErrNoRows and for malformed ids on lookups; other
// statements report a malformed id as a validation error.
func translatePgError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("%s", notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if msg, ok := conflictConstraints[pgErr.ConstraintName]; ok {
				return apperror.StateConflict("%s", msg)
			}
			field := uniqueFields[pgErr.ConstraintName]
			if field == "" {
				return apperror.StateConflict("record already exists")
			}
			return apperror.Validation(field, "%s already in use", field)
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case "leads_assigned_to_fkey":
				return apperror.NotFound("employee not found")
			default:
				return apperror.StateConflict("record is still referenced")
			}
		case invalidTextCode:
			if notFound != "" {
				return apperror.NotFound("%s", notFound)
			}
			return apperror.Validation("id", "malformed identifier")
		case checkViolationCode:
			return apperror.Validation("", "value rejected by constraint %s", pgErr.ConstraintName)
		}
	}

	return apperror.Storage(err, "database operation failed")
}
