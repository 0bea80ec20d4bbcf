// Package events defines the lifecycle events published while rules execute
// and notifications move through delivery.
package events

import (
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
)

type EventType string

// Kafka topic for workflow and notification lifecycle events.
const Topic = "fieldflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionSkippedEvent   EventType = "execution.skipped"

	// Notification lifecycle events.
	NotificationCreatedEvent EventType = "notification.created"

	// Reminder lifecycle events.
	ReminderDueEvent EventType = "reminder.due"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string              `json:"execution_id"`
	RuleID       string              `json:"rule_id"`
	EntityType   models.EntityType   `json:"entity_type"`
	EntityID     string              `json:"entity_id"`
	TriggerEvent models.TriggerEvent `json:"trigger_event"`
	TriggerData  map[string]any      `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string        `json:"execution_id"`
	RuleID        string        `json:"rule_id"`
	ActionsRun    int           `json:"actions_run"`
	ActionsFailed int           `json:"actions_failed"`
	Duration      time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	RuleID      string        `json:"rule_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionSkipped struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	RuleID      string `json:"rule_id"`
	Reason      string `json:"reason"`
}

func (e ExecutionSkipped) GetType() EventType {
	return ExecutionSkippedEvent
}

// NotificationCreated is consumed by the deliverer, which attempts outbound
// delivery for channels other than in_app.
type NotificationCreated struct {
	BaseEvent

	NotificationID   string                  `json:"notification_id"`
	ExecutionID      string                  `json:"execution_id,omitempty"`
	RecipientType    models.RecipientType    `json:"recipient_type"`
	NotificationType models.NotificationType `json:"notification_type"`
}

func (e NotificationCreated) GetType() EventType {
	return NotificationCreatedEvent
}

type ReminderDue struct {
	BaseEvent

	ReminderID string            `json:"reminder_id"`
	EntityType models.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
}

func (e ReminderDue) GetType() EventType {
	return ReminderDueEvent
}
