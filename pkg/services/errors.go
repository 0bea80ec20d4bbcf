package services

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError carries the individual issues found while validating a
// rule or notification payload.
type ValidationError struct {
	Issues []string
}

func NewValidationError(issues ...string) *ValidationError {
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Issues, "; "))
}

func IsValidation(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}

var ErrTemplateNotFound = errors.New("rule template not found")
