// Package apperror defines the tagged error taxonomy shared by the core and
// the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP mapping.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindStateConflict    Kind = "state_conflict"
	KindNoEligibleWorker Kind = "no_eligible_worker"
	KindStorage          Kind = "storage"
)

// Error is the single error type returned across the core boundary.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Validation reports a rejected input. field names the offending input, if any.
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func StateConflict(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func NoEligibleWorker(format string, args ...any) *Error {
	return &Error{Kind: KindNoEligibleWorker, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure. The message is what clients see; the
// cause is kept for logs.
func Storage(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of err. Untagged errors are treated as storage
// failures, since nothing else in the core returns them.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	case KindNoEligibleWorker:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the client-facing view of err. Storage failures are reduced
// to a generic message.
func Public(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindStorage {
		return &Error{Kind: appErr.Kind, Message: appErr.Message, Field: appErr.Field}
	}
	return &Error{Kind: KindStorage, Message: "internal error, please retry later"}
}
