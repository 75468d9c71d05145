package simulator

import (
	"errors"
	"fmt"
)

// SequenceError represents an input the engine cannot process.
//
// Both codes are fatal for the current stream. Skipping a malformed basal
// transition would corrupt every later duration.
type SequenceError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed, e.g. "basal" or "tempBasal".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, a *record.MissingFieldError or
	// *record.InvalidFieldError for ErrCodeMissingField.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeMissingField indicates a record failed validation: a field
	// required for its kind was absent or held an unusable value.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeInvalidSequence indicates an operation that is meaningless in
	// the current state, e.g. a temp-basal stop without a start.
	ErrCodeInvalidSequence ErrorCode = "INVALID_SEQUENCE"
)

// Error implements the error interface.
func (e *SequenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func (e *SequenceError) Unwrap() error {
	return e.Err
}

// IsMissingField returns true if err is a missing-field error.
// Uses errors.As to handle wrapped errors.
func IsMissingField(err error) bool {
	var se *SequenceError
	if errors.As(err, &se) {
		return se.Code == ErrCodeMissingField
	}
	return false
}

// IsInvalidSequence returns true if err is an invalid-sequence error.
func IsInvalidSequence(err error) bool {
	var se *SequenceError
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidSequence
	}
	return false
}

func missingField(op string, err error) *SequenceError {
	return &SequenceError{Code: ErrCodeMissingField, Op: op, Err: err}
}

func invalidSequence(op, format string, args ...any) *SequenceError {
	return &SequenceError{
		Code:    ErrCodeInvalidSequence,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
