// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a workflow rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("workflow rule not found")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("workflow execution not found")

	// ErrExecutionTerminal indicates a mutation was attempted on a completed,
	// failed, or skipped execution.
	ErrExecutionTerminal = errors.New("workflow execution is terminal")

	// ErrInvalidTransition indicates a state change the execution state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid execution status transition")

	// ErrNotificationNotFound indicates a notification was not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrReminderNotFound indicates a reminder was not found.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrEntityNotFound indicates the target entity of a status mutation was not found.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownEntityType indicates an entity type outside the closed set.
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// RuleError wraps rule-related errors with additional context.
type RuleError struct {
	Op       string // Operation being performed (e.g., "SaveRule", "DeleteRule")
	TenantID string
	RuleID   string
	Err      error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s failed for rule %s (tenant %s): %v", e.Op, e.RuleID, e.TenantID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a new rule error with context.
func NewRuleError(op, tenantID, ruleID string, err error) *RuleError {
	return &RuleError{Op: op, TenantID: tenantID, RuleID: ruleID, Err: err}
}

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string
	TenantID    string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed for execution %s (tenant %s): %v", e.Op, e.ExecutionID, e.TenantID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, tenantID, executionID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, TenantID: tenantID, ExecutionID: executionID, Err: err}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionTerminal checks if an error indicates a write to a terminal execution.
func IsExecutionTerminal(err error) bool {
	return errors.Is(err, ErrExecutionTerminal)
}

// IsNotificationNotFound checks if an error indicates a notification was not found.
func IsNotificationNotFound(err error) bool {
	return errors.Is(err, ErrNotificationNotFound)
}
