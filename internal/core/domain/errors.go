package domain

import "errors"

// ErrValidation marks failures detected locally, before any request is sent
var ErrValidation = errors.New("validation failed")

// ValidationError carries a user-facing message for a local validation failure
type ValidationError struct {
	Message string
}

// NewValidationError creates a validation error with the given message
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any validation error
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
