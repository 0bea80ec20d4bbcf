package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/otelhelper"
	"github.com/fieldflow/fieldflow/pkg/template"
)

// runAction executes one action under the per-action timeout and produces
// its outcome. Action failures are captured in the result, never returned;
// one bad action must not stop the rest of the rule.
func (e *Engine) runAction(ctx context.Context, tctx models.TenantContext, execution *models.WorkflowExecution, action models.Action) models.ActionResult {
	ctx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run_action",
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	result := models.ActionResult{
		Action:     action,
		Status:     models.ActionOutcomeCompleted,
		ExecutedAt: time.Now().UTC(),
	}

	var err error

	switch action.Type {
	case models.ActionTypeSendNotification:
		err = e.sendNotification(ctx, tctx, execution, action)
	case models.ActionTypeSendEmail:
		err = e.sendEmail(ctx, tctx, execution, action)
	case models.ActionTypeCreateReminder:
		err = e.createReminder(ctx, tctx, execution, action)
	case models.ActionTypeUpdateStatus:
		err = e.updateStatus(ctx, tctx, execution, action)
	case models.ActionTypeAssignTeam, models.ActionTypeCreateInvoice, models.ActionTypeWebhook:
		result.Detail = fmt.Sprintf("action type %s is not implemented; recorded as no-op", action.Type)

		e.logger.InfoContext(ctx, "Action type not implemented, recording no-op",
			"action_type", action.Type, "execution_id", execution.ID)
	default:
		err = fmt.Errorf("unknown action type: %s", action.Type)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		result.Status = models.ActionOutcomeFailed
		result.Error = err.Error()

		e.logger.ErrorContext(ctx, "Action failed",
			"action_type", action.Type, "execution_id", execution.ID, "error", err)
	}

	return result
}

// sendNotification creates an in-app notification for the configured
// recipient. Title and message render {{placeholders}} against the trigger
// payload.
func (e *Engine) sendNotification(ctx context.Context, tctx models.TenantContext, execution *models.WorkflowExecution, action models.Action) error {
	now := time.Now().UTC()

	notification := &models.Notification{
		ID:               uuid.New().String(),
		TenantID:         tctx.TenantID,
		RecipientType:    models.RecipientType(action.StringParam("recipient_type", string(models.RecipientTypeUser))),
		RecipientID:      action.StringParam("recipient_id", ""),
		NotificationType: models.NotificationTypeInApp,
		Category:         action.StringParam("category", "workflow"),
		Title:            template.Render(action.StringParam("title", "Workflow Notification"), execution.TriggerData),
		Message:          template.Render(action.StringParam("message", "A workflow action was triggered"), execution.TriggerData),
		Data: map[string]any{
			"workflow_execution_id": execution.ID,
			"entity_type":           string(execution.EntityType),
			"entity_id":             execution.EntityID,
		},
		Status:      models.NotificationStatusPending,
		ExecutionID: execution.ID,
		EntityID:    execution.EntityID,
		EntityType:  execution.EntityType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.persistence.NotificationRepository().SaveNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	e.publish(ctx, tctx.TenantID, events.NotificationCreated{
		BaseEvent:        e.baseEvent(events.NotificationCreatedEvent, tctx.TenantID),
		NotificationID:   notification.ID,
		ExecutionID:      execution.ID,
		RecipientType:    notification.RecipientType,
		NotificationType: notification.NotificationType,
	})

	return nil
}

// sendEmail records an outbound email notification. Actual transport happens
// in the deliverer, driven by the created event.
func (e *Engine) sendEmail(ctx context.Context, tctx models.TenantContext, execution *models.WorkflowExecution, action models.Action) error {
	now := time.Now().UTC()

	notification := &models.Notification{
		ID:               uuid.New().String(),
		TenantID:         tctx.TenantID,
		RecipientType:    models.RecipientTypeExternal,
		RecipientEmail:   action.StringParam("recipient_email", ""),
		NotificationType: models.NotificationTypeEmail,
		Category:         action.StringParam("category", "workflow"),
		Title:            template.Render(action.StringParam("subject", "Workflow Email"), execution.TriggerData),
		Message:          template.Render(action.StringParam("message", "This is an automated email from your workflow"), execution.TriggerData),
		Data: map[string]any{
			"workflow_execution_id": execution.ID,
			"entity_type":           string(execution.EntityType),
			"entity_id":             execution.EntityID,
		},
		Status:      models.NotificationStatusPending,
		ExecutionID: execution.ID,
		EntityID:    execution.EntityID,
		EntityType:  execution.EntityType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.persistence.NotificationRepository().SaveNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to save email notification: %w", err)
	}

	e.publish(ctx, tctx.TenantID, events.NotificationCreated{
		BaseEvent:        e.baseEvent(events.NotificationCreatedEvent, tctx.TenantID),
		NotificationID:   notification.ID,
		ExecutionID:      execution.ID,
		RecipientType:    notification.RecipientType,
		NotificationType: notification.NotificationType,
	})

	return nil
}

// createReminder schedules an automated reminder tied to the triggering
// entity.
func (e *Engine) createReminder(ctx context.Context, tctx models.TenantContext, execution *models.WorkflowExecution, action models.Action) error {
	frequency := models.ReminderFrequency(action.StringParam("frequency", string(models.ReminderFrequencyOnce)))

	switch frequency {
	case models.ReminderFrequencyOnce, models.ReminderFrequencyDaily,
		models.ReminderFrequencyWeekly, models.ReminderFrequencyMonthly:
	default:
		return fmt.Errorf("unknown reminder frequency: %s", frequency)
	}

	now := time.Now().UTC()

	reminder := &models.Reminder{
		ID:           uuid.New().String(),
		TenantID:     tctx.TenantID,
		EntityType:   execution.EntityType,
		EntityID:     execution.EntityID,
		ReminderType: action.StringParam("reminder_type", "follow_up"),
		Title:        template.Render(action.StringParam("title", "Automated Reminder"), execution.TriggerData),
		Message:      template.Render(action.StringParam("message", "This is an automated reminder"), execution.TriggerData),
		RemindAt:     now.AddDate(0, 0, action.IntParam("days_from_now", 1)),
		Frequency:    frequency,
		MaxReminders: action.IntParam("max_reminders", 1),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.persistence.ReminderRepository().SaveReminder(ctx, reminder); err != nil {
		return fmt.Errorf("failed to save reminder: %w", err)
	}

	return nil
}

// updateStatus writes the entity's status through the privileged entity
// repository. The new status must belong to the entity type's vocabulary.
func (e *Engine) updateStatus(ctx context.Context, tctx models.TenantContext, execution *models.WorkflowExecution, action models.Action) error {
	newStatus := action.StringParam("new_status", "")
	if newStatus == "" {
		return fmt.Errorf("new_status parameter is required for update_status action")
	}

	if !execution.EntityType.ValidStatus(newStatus) {
		return fmt.Errorf("status %q is not valid for entity type %s", newStatus, execution.EntityType)
	}

	err := e.persistence.EntityRepository().UpdateEntityStatus(ctx, tctx.TenantID, execution.EntityType, execution.EntityID, newStatus)
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", execution.EntityType, err)
	}

	return nil
}
