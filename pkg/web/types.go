// Package web provides the HTTP handlers and REST API endpoints for rule
// management, triggering, and the notification mailbox.
package web

import "github.com/fieldflow/fieldflow/pkg/models"

// RuleActionRequest is one action inside a rule create or update request.
type RuleActionRequest struct {
	Type       string         `json:"type"       validate:"required"`
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters"`
}

// CreateRuleRequest represents the request body for creating a workflow rule.
type CreateRuleRequest struct {
	Name              string              `json:"name"               validate:"required,min=3"`
	Description       string              `json:"description"`
	EntityType        string              `json:"entity_type"        validate:"required"`
	TriggerEvent      string              `json:"trigger_event"      validate:"required"`
	TriggerConditions map[string]any      `json:"trigger_conditions"`
	Actions           []RuleActionRequest `json:"actions"            validate:"required,min=1,dive"`
	Active            *bool               `json:"active,omitempty"`
}

// UpdateRuleRequest represents the request body for updating a rule. All
// fields are optional to support partial updates.
type UpdateRuleRequest struct {
	Name              *string             `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description       *string             `json:"description,omitempty"`
	TriggerConditions map[string]any      `json:"trigger_conditions,omitempty"`
	Actions           []RuleActionRequest `json:"actions,omitempty"     validate:"omitempty,min=1,dive"`
	Active            *bool               `json:"active,omitempty"`
}

// TriggerRequest represents the request body for firing a lifecycle event
// against an entity.
type TriggerRequest struct {
	EntityType   string         `json:"entity_type"   validate:"required"`
	EntityID     string         `json:"entity_id"     validate:"required"`
	TriggerEvent string         `json:"trigger_event" validate:"required"`
	TriggerData  map[string]any `json:"trigger_data"`
}

// TriggerResponse lists the executions created by one trigger call.
type TriggerResponse struct {
	ExecutionIDs []string `json:"execution_ids"`
}

// SendNotificationRequest represents the request body for sending a manual
// notification outside of any workflow rule.
type SendNotificationRequest struct {
	RecipientType    string         `json:"recipient_type"`
	RecipientID      string         `json:"recipient_id,omitempty"`
	RecipientEmail   string         `json:"recipient_email,omitempty"`
	RecipientPhone   string         `json:"recipient_phone,omitempty"`
	NotificationType string         `json:"notification_type"`
	Category         string         `json:"category"`
	Title            string         `json:"title"   validate:"required"`
	Message          string         `json:"message" validate:"required"`
	Data             map[string]any `json:"data,omitempty"`
}

func (r CreateRuleRequest) toModel() *models.WorkflowRule {
	rule := &models.WorkflowRule{
		Name:              r.Name,
		Description:       r.Description,
		EntityType:        models.EntityType(r.EntityType),
		TriggerEvent:      models.TriggerEvent(r.TriggerEvent),
		TriggerConditions: r.TriggerConditions,
		Actions:           toModelActions(r.Actions),
		Active:            true,
	}

	if r.Active != nil {
		rule.Active = *r.Active
	}

	return rule
}

func toModelActions(actions []RuleActionRequest) []models.Action {
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, models.Action{
			Type:       models.ActionType(a.Type),
			Target:     a.Target,
			Parameters: a.Parameters,
		})
	}

	return out
}

func (r SendNotificationRequest) toModel() *models.Notification {
	return &models.Notification{
		RecipientType:    models.RecipientType(r.RecipientType),
		RecipientID:      r.RecipientID,
		RecipientEmail:   r.RecipientEmail,
		RecipientPhone:   r.RecipientPhone,
		NotificationType: models.NotificationType(r.NotificationType),
		Category:         r.Category,
		Title:            r.Title,
		Message:          r.Message,
		Data:             r.Data,
	}
}
