package models

import "time"

// ExecutionStatus is the state machine of a workflow execution.
//
//	pending -> executing -> completed | failed
//	pending -> skipped (trigger conditions did not match)
//
// completed, failed, and skipped are terminal; a terminal record is immutable.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusExecuting ExecutionStatus = "executing"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusSkipped   ExecutionStatus = "skipped"
)

// IsTerminal reports whether the status admits no further transition.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusSkipped
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusExecuting || next == ExecutionStatusSkipped || next == ExecutionStatusFailed
	case ExecutionStatusExecuting:
		return next == ExecutionStatusCompleted || next == ExecutionStatusFailed
	default:
		return false
	}
}

// WorkflowExecution is the audit record of one rule's attempt to run its
// actions in response to one trigger. It references the rule but does not own
// it; the rule may be edited or deleted independently. Executions are never
// deleted.
type WorkflowExecution struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	WorkflowRuleID  string          `json:"workflow_rule_id"`
	EntityID        string          `json:"entity_id"`
	EntityType      EntityType      `json:"entity_type"`
	TriggerData     map[string]any  `json:"trigger_data,omitempty"`
	Status          ExecutionStatus `json:"status"`
	ActionsExecuted []ActionResult  `json:"actions_executed"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
