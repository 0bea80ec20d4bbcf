// Package persistence provides the data storage abstraction layer for rules,
// executions, notifications, and reminders. All reads and writes are scoped by
// tenant; implementations hold no mutable state across requests.
package persistence

import (
	"context"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
)

type Persistence interface {
	RuleRepository() RuleRepository
	ExecutionRepository() ExecutionRepository
	NotificationRepository() NotificationRepository
	ReminderRepository() ReminderRepository
	EntityRepository() EntityRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RuleRepository stores workflow rules. ActiveRules is the only query path
// used by the trigger gateway; its ordering is stable per call but otherwise
// unspecified.
type RuleRepository interface {
	SaveRule(ctx context.Context, rule *models.WorkflowRule) error
	RuleByID(ctx context.Context, tenantID, id string) (*models.WorkflowRule, error)
	RulesByTenant(ctx context.Context, tenantID string) ([]*models.WorkflowRule, error)
	ActiveRules(ctx context.Context, tenantID string, entityType models.EntityType, triggerEvent models.TriggerEvent) ([]*models.WorkflowRule, error)
	DeleteRule(ctx context.Context, tenantID, id string) error
}

// ExecutionRepository stores execution audit records. Every state transition
// is persisted through a dedicated method before the caller proceeds, and a
// terminal record rejects further mutation with ErrExecutionTerminal.
// Executions are never deleted.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	MarkExecuting(ctx context.Context, tenantID, id string) error
	AppendActionResult(ctx context.Context, tenantID, id string, result models.ActionResult) error
	MarkCompleted(ctx context.Context, tenantID, id string, completedAt time.Time) error
	MarkFailed(ctx context.Context, tenantID, id, errorMessage string, completedAt time.Time) error
	MarkSkipped(ctx context.Context, tenantID, id string, completedAt time.Time) error
	ExecutionByID(ctx context.Context, tenantID, id string) (*models.WorkflowExecution, error)
	ExecutionsByEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) ([]*models.WorkflowExecution, error)
}

// NotificationRepository stores the notification mailbox. Notifications are
// never deleted; MarkRead sets read_at at most once.
type NotificationRepository interface {
	SaveNotification(ctx context.Context, notification *models.Notification) error
	NotificationByID(ctx context.Context, tenantID, id string) (*models.Notification, error)
	NotificationsForRecipient(ctx context.Context, tenantID, recipientID string, limit int) ([]*models.Notification, error)
	NotificationsForTenant(ctx context.Context, tenantID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, tenantID, id string, readAt time.Time) error
	UnreadCount(ctx context.Context, tenantID, recipientID string) (int, error)
	RecordDeliveryAttempt(ctx context.Context, tenantID, id string, attempt DeliveryAttempt) error
}

// DeliveryAttempt is the outcome of one delivery try for a notification.
type DeliveryAttempt struct {
	Status       models.NotificationStatus
	AttemptedAt  time.Time
	DeliveredAt  *time.Time
	ErrorMessage string
}

// ReminderRepository stores automated reminders. DueReminders is not tenant
// scoped; the scheduler sweeps every tenant in one pass.
type ReminderRepository interface {
	SaveReminder(ctx context.Context, reminder *models.Reminder) error
	ReminderByID(ctx context.Context, tenantID, id string) (*models.Reminder, error)
	DueReminders(ctx context.Context, due time.Time) ([]*models.Reminder, error)
	RecordReminderSent(ctx context.Context, tenantID, id string, nextRemindAt *time.Time) error
}

// EntityRepository is the privileged write path used only by the
// update_status action. Implementations derive the storage target strictly
// from the closed EntityType set.
type EntityRepository interface {
	UpdateEntityStatus(ctx context.Context, tenantID string, entityType models.EntityType, entityID, newStatus string) error
	EntityStatus(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) (string, error)
}
