// Package errors provides coded application errors shared across the
// service. Every error carries a machine-readable code that the HTTP layer
// maps onto a status, so callers never string-match messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeValidation   Code = "VALIDATION_ERROR"
	ErrCodeConflict     Code = "CONFLICT"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeInternal     Code = "INTERNAL"
)

// Error is a coded application error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message. Returns nil when err is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound reports that a resource does not exist.
func NotFound(resource, id string) error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

// InvalidInput reports a field-level validation failure.
func InvalidInput(field, message string) error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("%s: %s", field, message)}
}

// Conflict reports a state conflict (e.g. mutating a terminal request).
func Conflict(message string) error {
	return &Error{Code: ErrCodeConflict, Message: message}
}

// Unauthorized reports a failed authorization check.
func Unauthorized(message string) error {
	return &Error{Code: ErrCodeUnauthorized, Message: message}
}

// CodeOf extracts the code from err, or ErrCodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error to the HTTP status the API should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
