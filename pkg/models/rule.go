// Package models defines the core domain models for the workflow automation
// and notification engine.
package models

import "time"

// WorkflowRule is a declarative rule: trigger criteria plus an ordered action
// list, owned by a tenant. entity_type and trigger_event are not unique per
// tenant; several rules may match one event.
type WorkflowRule struct {
	ID                string         `json:"id"`
	TenantID          string         `json:"tenant_id"          validate:"required"`
	Name              string         `json:"name"               validate:"required,min=3"`
	Description       string         `json:"description"`
	EntityType        EntityType     `json:"entity_type"        validate:"required"`
	TriggerEvent      TriggerEvent   `json:"trigger_event"      validate:"required"`
	TriggerConditions map[string]any `json:"trigger_conditions"`
	Actions           []Action       `json:"actions"            validate:"required,min=1,dive"`
	Active            bool           `json:"active"`
	CreatedBy         string         `json:"created_by,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// RuleTemplate is a predefined, non-persisted starting point a tenant can
// instantiate into a WorkflowRule.
type RuleTemplate struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	EntityType        EntityType     `json:"entity_type"`
	TriggerEvent      TriggerEvent   `json:"trigger_event"`
	TriggerConditions map[string]any `json:"trigger_conditions"`
	Actions           []Action       `json:"actions"`
}
