package service

import (
	"errors"
	"fmt"
)

// Error kinds produced by the services. Every failure is terminal for the
// triggering call; the HTTP layer maps kinds to status codes.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
)

// FieldError is a validation failure tied to a single input field. It
// unwraps to ErrValidation so callers can match the kind with errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func fieldErr(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
