package models

import "time"

// ActionType is the closed vocabulary of work a matched rule can perform.
type ActionType string

const (
	ActionTypeSendNotification ActionType = "send_notification"
	ActionTypeSendEmail        ActionType = "send_email"
	ActionTypeCreateReminder   ActionType = "create_reminder"
	ActionTypeUpdateStatus     ActionType = "update_status"
	ActionTypeAssignTeam       ActionType = "assign_team"
	ActionTypeCreateInvoice    ActionType = "create_invoice"
	ActionTypeWebhook          ActionType = "webhook"
)

// ActionTypes lists every known action type, implemented or reserved.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionTypeSendNotification,
		ActionTypeSendEmail,
		ActionTypeCreateReminder,
		ActionTypeUpdateStatus,
		ActionTypeAssignTeam,
		ActionTypeCreateInvoice,
		ActionTypeWebhook,
	}
}

// IsValid reports whether the action type belongs to the closed set.
func (a ActionType) IsValid() bool {
	for _, known := range ActionTypes() {
		if a == known {
			return true
		}
	}

	return false
}

// Action is one unit of work embedded in a rule. Actions have no identity of
// their own; they are ordered within the rule and replaced as a whole on edit.
type Action struct {
	Type       ActionType     `json:"type"       validate:"required"`
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters"`
}

// StringParam returns the named parameter as a string, or fallback when the
// parameter is absent or not a string.
func (a Action) StringParam(key, fallback string) string {
	if v, ok := a.Parameters[key].(string); ok && v != "" {
		return v
	}

	return fallback
}

// IntParam returns the named parameter as an int, or fallback when the
// parameter is absent. JSON decoding produces float64, so both are accepted.
func (a Action) IntParam(key string, fallback int) int {
	switch v := a.Parameters[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// ActionOutcomeStatus is the terminal status of one attempted action.
type ActionOutcomeStatus string

const (
	ActionOutcomeCompleted ActionOutcomeStatus = "completed"
	ActionOutcomeFailed    ActionOutcomeStatus = "failed"
)

// ActionResult is one entry of an execution's append-only action log.
type ActionResult struct {
	Action

	Status     ActionOutcomeStatus `json:"status"`
	Error      string              `json:"error,omitempty"`
	Detail     string              `json:"detail,omitempty"`
	ExecutedAt time.Time           `json:"executed_at"`
}
