package repository

import (
	"errors"
	"testing"

	"crm.service/pkg/apperror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslatePgError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  apperror.Kind
		field string
	}{
		{"no rows", pgx.ErrNoRows, apperror.KindNotFound, ""},
		{"lead email taken", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "leads_email_key"}, apperror.KindValidation, "email"},
		{"lead phone taken", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "leads_phone_key"}, apperror.KindValidation, "phone"},
		{"unknown unique", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "attendance_employee_day_key"}, apperror.KindStateConflict, ""},
		{"missing assignee", &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "leads_assigned_to_fkey"}, apperror.KindNotFound, ""},
		{"still referenced", &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "other_fkey"}, apperror.KindStateConflict, ""},
		{"check", &pgconn.PgError{Code: checkViolationCode, ConstraintName: "leads_schedule_pair"}, apperror.KindValidation, ""},
		{"slot double-booked", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "leads_pending_slot_key"}, apperror.KindStateConflict, ""},
		{"malformed uuid on lookup", &pgconn.PgError{Code: invalidTextCode}, apperror.KindNotFound, ""},
		{"anything else", errors.New("connection reset"), apperror.KindStorage, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translatePgError(tt.err, "missing")
			var appErr *apperror.Error
			if assert.ErrorAs(t, err, &appErr) {
				assert.Equal(t, tt.kind, appErr.Kind)
				assert.Equal(t, tt.field, appErr.Field)
			}
		})
	}

	assert.NoError(t, translatePgError(nil, ""))

	already := apperror.StateConflict("x")
	assert.Same(t, already, translatePgError(already, ""))
}

func TestTranslatePgErrorMalformedIDWithoutLookup(t *testing.T) {
	err := translatePgError(&pgconn.PgError{Code: invalidTextCode, Message: `invalid input syntax for type uuid: "abc"`}, "")

	var appErr *apperror.Error
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, apperror.KindValidation, appErr.Kind)
		assert.Equal(t, "id", appErr.Field)
	}
}
