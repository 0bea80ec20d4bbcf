package engine_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldflow/fieldflow/pkg/engine"
	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence/file"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published = append(p.published, event)

	return nil
}

func (p *capturingPublisher) eventTypes() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.published))
	for _, event := range p.published {
		types = append(types, event.GetType())
	}

	return types
}

func newEngine(t *testing.T) (*engine.Engine, *file.Persistence, *capturingPublisher) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	publisher := &capturingPublisher{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return engine.NewEngine(p, publisher, nil, logger), p, publisher
}

var tctx = models.TenantContext{TenantID: "tenant-1", UserID: "user-1"}

func saveRule(t *testing.T, p *file.Persistence, rule *models.WorkflowRule) *models.WorkflowRule {
	t.Helper()

	now := time.Now().UTC()

	if rule.ID == "" {
		rule.ID = "rule-" + rule.Name
	}

	rule.TenantID = tctx.TenantID
	rule.CreatedAt = now
	rule.UpdatedAt = now

	require.NoError(t, p.RuleRepository().SaveRule(t.Context(), rule))

	return rule
}

func notifyRule(name string) *models.WorkflowRule {
	return &models.WorkflowRule{
		Name:         name,
		EntityType:   models.EntityTypeJob,
		TriggerEvent: models.TriggerEventStatusChange,
		Actions: []models.Action{
			{Type: models.ActionTypeSendNotification, Target: "customer", Parameters: map[string]any{
				"recipient_id": "user-2",
				"message":      "Your job status has been updated to {{new_status}}",
			}},
		},
		Active: true,
	}
}

func jobTrigger(data map[string]any) engine.TriggerRequest {
	return engine.TriggerRequest{
		EntityType:   models.EntityTypeJob,
		EntityID:     "job-1",
		TriggerEvent: models.TriggerEventStatusChange,
		TriggerData:  data,
	}
}

func TestTrigger_RequiresTenant(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.Trigger(t.Context(), models.TenantContext{}, jobTrigger(nil))
	assert.ErrorIs(t, err, models.ErrTenantRequired)
}

func TestTrigger_ValidatesRequest(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.Trigger(t.Context(), tctx, engine.TriggerRequest{
		EntityType: "project", EntityID: "x", TriggerEvent: models.TriggerEventCreated,
	})
	assert.ErrorContains(t, err, "unknown entity type")

	_, err = e.Trigger(t.Context(), tctx, engine.TriggerRequest{
		EntityType: models.EntityTypeJob, TriggerEvent: models.TriggerEventCreated,
	})
	assert.ErrorContains(t, err, "entity id is required")

	_, err = e.Trigger(t.Context(), tctx, engine.TriggerRequest{
		EntityType: models.EntityTypeJob, EntityID: "job-1", TriggerEvent: "renamed",
	})
	assert.ErrorContains(t, err, "unknown trigger event")
}

func TestTrigger_NoMatchingRules(t *testing.T) {
	e, _, publisher := newEngine(t)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, publisher.eventTypes())
}

func TestTrigger_OneExecutionPerMatchedRule(t *testing.T) {
	e, p, _ := newEngine(t)

	saveRule(t, p, notifyRule("first"))
	saveRule(t, p, notifyRule("second"))

	inactive := notifyRule("third")
	inactive.Active = false
	saveRule(t, p, inactive)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(map[string]any{"new_status": "completed"}))
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	for _, id := range ids {
		execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, id)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
		require.NotNil(t, execution.CompletedAt)
		require.Len(t, execution.ActionsExecuted, 1)
		assert.Equal(t, models.ActionOutcomeCompleted, execution.ActionsExecuted[0].Status)
	}
}

func TestTrigger_SendNotificationRendersPlaceholders(t *testing.T) {
	e, p, publisher := newEngine(t)

	saveRule(t, p, notifyRule("render"))

	_, err := e.Trigger(t.Context(), tctx, jobTrigger(map[string]any{"new_status": "completed"}))
	require.NoError(t, err)

	notifications, err := p.NotificationRepository().NotificationsForRecipient(t.Context(), tctx.TenantID, "user-2", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	notification := notifications[0]
	assert.Equal(t, "Your job status has been updated to completed", notification.Message)
	assert.Equal(t, "Workflow Notification", notification.Title)
	assert.Equal(t, "workflow", notification.Category)
	assert.Equal(t, models.RecipientTypeUser, notification.RecipientType)
	assert.Equal(t, models.NotificationTypeInApp, notification.NotificationType)
	assert.Equal(t, models.EntityTypeJob, notification.EntityType)
	assert.Equal(t, "job-1", notification.EntityID)
	assert.NotEmpty(t, notification.ExecutionID)

	assert.Contains(t, publisher.eventTypes(), events.NotificationCreatedEvent)
	assert.Contains(t, publisher.eventTypes(), events.ExecutionStartedEvent)
	assert.Contains(t, publisher.eventTypes(), events.ExecutionCompletedEvent)
}

func TestTrigger_ConditionsNotMetSkipsExecution(t *testing.T) {
	e, p, publisher := newEngine(t)

	rule := notifyRule("conditional")
	rule.TriggerConditions = map[string]any{"new_status": "completed"}
	saveRule(t, p, rule)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(map[string]any{"new_status": "on_hold"}))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSkipped, execution.Status)
	assert.Empty(t, execution.ActionsExecuted)

	// No notification was created.
	notifications, err := p.NotificationRepository().NotificationsForRecipient(t.Context(), tctx.TenantID, "user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, notifications)

	assert.Contains(t, publisher.eventTypes(), events.ExecutionSkippedEvent)
	assert.NotContains(t, publisher.eventTypes(), events.ExecutionCompletedEvent)
}

func TestTrigger_EmptyConditionsMatchEverything(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("unconditional")
	rule.TriggerConditions = map[string]any{}
	saveRule(t, p, rule)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
}

func TestTrigger_ActionFailureIsIsolated(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("mixed")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeUpdateStatus, Parameters: map[string]any{}}, // missing new_status
		{Type: models.ActionTypeSendNotification, Parameters: map[string]any{
			"recipient_id": "user-2",
			"message":      "still delivered",
		}},
	}
	saveRule(t, p, rule)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.ActionsExecuted, 2)

	assert.Equal(t, models.ActionOutcomeFailed, execution.ActionsExecuted[0].Status)
	assert.Contains(t, execution.ActionsExecuted[0].Error, "new_status parameter is required")
	assert.Equal(t, models.ActionOutcomeCompleted, execution.ActionsExecuted[1].Status)

	// The second action still produced its notification.
	notifications, err := p.NotificationRepository().NotificationsForRecipient(t.Context(), tctx.TenantID, "user-2", 10)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestTrigger_UpdateStatus(t *testing.T) {
	e, p, _ := newEngine(t)

	require.NoError(t, p.EntityRepository().(*file.EntityRepository).SeedEntity(t.Context(), tctx.TenantID, models.EntityTypeJob, "job-1", "in_progress"))

	rule := notifyRule("status writer")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeUpdateStatus, Parameters: map[string]any{"new_status": "completed"}},
	}
	saveRule(t, p, rule)

	_, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)

	status, err := p.EntityRepository().EntityStatus(t.Context(), tctx.TenantID, models.EntityTypeJob, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
}

func TestTrigger_UpdateStatusRejectsUnknownStatus(t *testing.T) {
	e, p, _ := newEngine(t)

	require.NoError(t, p.EntityRepository().(*file.EntityRepository).SeedEntity(t.Context(), tctx.TenantID, models.EntityTypeJob, "job-1", "in_progress"))

	rule := notifyRule("bad status")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeUpdateStatus, Parameters: map[string]any{"new_status": "archived"}},
	}
	saveRule(t, p, rule)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, ids[0])
	require.NoError(t, err)
	require.Len(t, execution.ActionsExecuted, 1)
	assert.Equal(t, models.ActionOutcomeFailed, execution.ActionsExecuted[0].Status)
	assert.Contains(t, execution.ActionsExecuted[0].Error, "not valid for entity type")

	// The entity keeps its original status.
	status, err := p.EntityRepository().EntityStatus(t.Context(), tctx.TenantID, models.EntityTypeJob, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", status)
}

func TestTrigger_CreateReminder(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("reminder maker")
	rule.EntityType = models.EntityTypeInspection
	rule.TriggerEvent = models.TriggerEventOverdue
	rule.Actions = []models.Action{
		{Type: models.ActionTypeCreateReminder, Target: "system", Parameters: map[string]any{
			"reminder_type": "inspection",
			"title":         "Follow up on overdue inspection",
			"days_from_now": 2,
			"frequency":     "daily",
			"max_reminders": 3,
		}},
	}
	saveRule(t, p, rule)

	before := time.Now().UTC()

	_, err := e.Trigger(t.Context(), tctx, engine.TriggerRequest{
		EntityType:   models.EntityTypeInspection,
		EntityID:     "inspection-1",
		TriggerEvent: models.TriggerEventOverdue,
	})
	require.NoError(t, err)

	due, err := p.ReminderRepository().DueReminders(t.Context(), before.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, due, 1)

	reminder := due[0]
	assert.Equal(t, "inspection", reminder.ReminderType)
	assert.Equal(t, models.EntityTypeInspection, reminder.EntityType)
	assert.Equal(t, "inspection-1", reminder.EntityID)
	assert.Equal(t, models.ReminderFrequencyDaily, reminder.Frequency)
	assert.Equal(t, 3, reminder.MaxReminders)
	assert.True(t, reminder.Active)
	assert.WithinDuration(t, before.AddDate(0, 0, 2), reminder.RemindAt, time.Minute)
}

func TestTrigger_CreateReminderDefaults(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("reminder defaults")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeCreateReminder, Parameters: map[string]any{}},
	}
	saveRule(t, p, rule)

	before := time.Now().UTC()

	_, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)

	due, err := p.ReminderRepository().DueReminders(t.Context(), before.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, due, 1)

	reminder := due[0]
	assert.Equal(t, "follow_up", reminder.ReminderType)
	assert.Equal(t, "Automated Reminder", reminder.Title)
	assert.Equal(t, models.ReminderFrequencyOnce, reminder.Frequency)
	assert.Equal(t, 1, reminder.MaxReminders)
	assert.WithinDuration(t, before.AddDate(0, 0, 1), reminder.RemindAt, time.Minute)
}

func TestTrigger_SendEmailDefaults(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("emailer")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeSendEmail, Target: "customer", Parameters: map[string]any{
			"recipient_email": "customer@example.com",
		}},
	}
	saveRule(t, p, rule)

	_, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)

	notifications, err := p.NotificationRepository().NotificationsForTenant(t.Context(), tctx.TenantID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	notification := notifications[0]
	assert.Equal(t, models.RecipientTypeExternal, notification.RecipientType)
	assert.Equal(t, models.NotificationTypeEmail, notification.NotificationType)
	assert.Equal(t, "customer@example.com", notification.RecipientEmail)
	assert.Equal(t, "Workflow Email", notification.Title)
	assert.Equal(t, "This is an automated email from your workflow", notification.Message)
}

func TestTrigger_UnimplementedActionRecordsNoOp(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("future actions")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeAssignTeam, Parameters: map[string]any{"team_id": "team-1"}},
		{Type: models.ActionTypeCreateInvoice},
		{Type: models.ActionTypeWebhook, Parameters: map[string]any{"url": "https://example.com/hook"}},
	}
	saveRule(t, p, rule)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.ActionsExecuted, 3)

	for _, result := range execution.ActionsExecuted {
		assert.Equal(t, models.ActionOutcomeCompleted, result.Status)
		assert.Contains(t, result.Detail, "not implemented")
	}
}

func TestTrigger_ActionResultsKeepDeclaredOrder(t *testing.T) {
	e, p, _ := newEngine(t)

	rule := notifyRule("ordered")
	rule.Actions = []models.Action{
		{Type: models.ActionTypeSendNotification, Parameters: map[string]any{"recipient_id": "a", "message": "one"}},
		{Type: models.ActionTypeAssignTeam},
		{Type: models.ActionTypeSendEmail, Parameters: map[string]any{"recipient_email": "x@example.com"}},
	}
	saveRule(t, p, rule)

	ids, err := e.Trigger(t.Context(), tctx, jobTrigger(nil))
	require.NoError(t, err)

	execution, err := p.ExecutionRepository().ExecutionByID(t.Context(), tctx.TenantID, ids[0])
	require.NoError(t, err)
	require.Len(t, execution.ActionsExecuted, 3)
	assert.Equal(t, models.ActionTypeSendNotification, execution.ActionsExecuted[0].Type)
	assert.Equal(t, models.ActionTypeAssignTeam, execution.ActionsExecuted[1].Type)
	assert.Equal(t, models.ActionTypeSendEmail, execution.ActionsExecuted[2].Type)
}

func TestTrigger_TenantIsolation(t *testing.T) {
	e, p, _ := newEngine(t)

	saveRule(t, p, notifyRule("tenant one rule"))

	other := models.TenantContext{TenantID: "tenant-2"}

	ids, err := e.Trigger(t.Context(), other, jobTrigger(map[string]any{"new_status": "completed"}))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestConditionsMatch(t *testing.T) {
	tests := []struct {
		name       string
		conditions map[string]any
		payload    map[string]any
		expected   bool
	}{
		{"nil conditions", nil, map[string]any{"a": 1}, true},
		{"empty conditions", map[string]any{}, nil, true},
		{"exact match", map[string]any{"status": "sent"}, map[string]any{"status": "sent", "extra": true}, true},
		{"value mismatch", map[string]any{"status": "sent"}, map[string]any{"status": "draft"}, false},
		{"missing key", map[string]any{"status": "sent"}, map[string]any{"other": "sent"}, false},
		{"numeric types compare by value", map[string]any{"count": 3}, map[string]any{"count": float64(3)}, true},
		{"bool match", map[string]any{"urgent": true}, map[string]any{"urgent": true}, true},
		{"multiple conditions all required", map[string]any{"a": "x", "b": "y"}, map[string]any{"a": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.ConditionsMatch(tt.conditions, tt.payload))
		})
	}
}
