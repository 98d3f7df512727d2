package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a quiz does not exist or is not visible to the caller.
	ErrNotFound = errors.New("quiz not found")
	// ErrForbidden is returned when the caller does not own the quiz being mutated.
	ErrForbidden = errors.New("not the owner of this quiz")
)

// ValidationError reports rule-violating input. The message is safe to show to
// the end user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(message string) error {
	return &ValidationError{Message: message}
}

// internalErr wraps persistence and other unexpected failures with an
// operation prefix so the boundary can report a generic 500 without losing
// the cause in logs.
func internalErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
