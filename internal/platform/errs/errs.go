// Package errs defines the error taxonomy shared by the navigator, the
// aggregator and the grading workflow. Callers match with errors.Is / errors.As.
package errs

import (
	"errors"
	"strings"
)

var (
	// ErrTransport marks a failed call to the Catalog or Attempt service.
	ErrTransport = errors.New("transport error")
	// ErrValidation marks input rejected before any write was attempted.
	ErrValidation = errors.New("validation error")
	// ErrLocked marks a write attempted on a finalized attempt.
	ErrLocked = errors.New("attempt is finalized")
	// ErrDataIntegrity marks malformed server data (duplicate topic ids,
	// attempt records without a usable student identity).
	ErrDataIntegrity = errors.New("data integrity error")
	// ErrNotFound marks a missing curriculum, topic, attempt or response.
	ErrNotFound = errors.New("not found")
)

// FieldError describes a problem with one input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
