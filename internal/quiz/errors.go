package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound also covers rows that exist but belong to another user.
	ErrNotFound        = errors.New("not found")
	ErrDataIntegrity   = errors.New("data integrity violation")
	ErrAttemptFinished = errors.New("exam attempt already finished")
)

// ValidationError is returned for caller input that can never succeed as sent.
type ValidationError struct {
	Message string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func newValidationError(message, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: message, Details: fmt.Sprintf(format, args...)}
}
