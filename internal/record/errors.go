package record

import (
	"errors"
	"fmt"
)

// MissingFieldError reports a field required for a record kind that was
// absent when Done was called.
type MissingFieldError struct {
	Kind  Kind
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Kind, e.Field)
}

// IsMissingField returns true if err is or wraps a *MissingFieldError.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}

// InvalidFieldError reports a field that is present but holds a value
// its kind cannot carry, such as a negative duration.
type InvalidFieldError struct {
	Kind   Kind
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: invalid field %q: %s", e.Kind, e.Field, e.Reason)
}

// IsInvalidField returns true if err is or wraps an *InvalidFieldError.
func IsInvalidField(err error) bool {
	var inv *InvalidFieldError
	return errors.As(err, &inv)
}

func missing(kind Kind, field string) error {
	return &MissingFieldError{Kind: kind, Field: field}
}
