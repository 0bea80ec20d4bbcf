package scheduler_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence/file"
	"github.com/fieldflow/fieldflow/pkg/scheduler"
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

func newScheduler(t *testing.T) (*scheduler.Scheduler, *file.Persistence, *capturingPublisher) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	publisher := &capturingPublisher{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s, err := scheduler.NewScheduler(p, publisher, logger, "")
	require.NoError(t, err)

	return s, p, publisher
}

func newReminder(id string, remindAt time.Time, frequency models.ReminderFrequency, maxReminders int) *models.Reminder {
	return &models.Reminder{
		ID:           id,
		TenantID:     "tenant-1",
		EntityType:   models.EntityTypeJob,
		EntityID:     "job-1",
		ReminderType: "follow_up",
		Title:        "Follow up",
		Message:      "Check in with the customer",
		RemindAt:     remindAt,
		Frequency:    frequency,
		MaxReminders: maxReminders,
		Active:       true,
		CreatedAt:    remindAt,
		UpdatedAt:    remindAt,
	}
}

func TestNewScheduler_RejectsInvalidCronExpression(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := scheduler.NewScheduler(p, nil, logger, "not a cron expression")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestProcessDue_CreatesNotificationAndReschedules(t *testing.T) {
	s, p, publisher := newScheduler(t)

	now := time.Now().UTC()
	reminder := newReminder("rem-1", now.Add(-time.Minute), models.ReminderFrequencyDaily, 3)
	require.NoError(t, p.ReminderRepository().SaveReminder(t.Context(), reminder))

	processed, err := s.ProcessDue(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	notifications, err := p.NotificationRepository().NotificationsForTenant(t.Context(), "tenant-1", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Follow up", notifications[0].Title)
	assert.Equal(t, "Check in with the customer", notifications[0].Message)
	assert.Equal(t, "reminder", notifications[0].Category)
	assert.Equal(t, models.NotificationTypeInApp, notifications[0].NotificationType)
	assert.Equal(t, "rem-1", notifications[0].Data["reminder_id"])

	updated, err := p.ReminderRepository().ReminderByID(t.Context(), "tenant-1", "rem-1")
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, 1, updated.RemindersSent)
	assert.WithinDuration(t, reminder.RemindAt.AddDate(0, 0, 1), updated.RemindAt, time.Second)

	assert.Equal(t, []events.EventType{events.ReminderDueEvent, events.NotificationCreatedEvent}, publisher.eventTypes())
}

func TestProcessDue_RetiresOnceFrequency(t *testing.T) {
	s, p, _ := newScheduler(t)

	now := time.Now().UTC()
	reminder := newReminder("rem-once", now.Add(-time.Minute), models.ReminderFrequencyOnce, 5)
	require.NoError(t, p.ReminderRepository().SaveReminder(t.Context(), reminder))

	processed, err := s.ProcessDue(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	updated, err := p.ReminderRepository().ReminderByID(t.Context(), "tenant-1", "rem-once")
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, 1, updated.RemindersSent)
}

func TestProcessDue_RetiresAtMaxReminders(t *testing.T) {
	s, p, _ := newScheduler(t)

	now := time.Now().UTC()
	reminder := newReminder("rem-max", now.Add(-time.Minute), models.ReminderFrequencyDaily, 2)
	reminder.RemindersSent = 1
	require.NoError(t, p.ReminderRepository().SaveReminder(t.Context(), reminder))

	processed, err := s.ProcessDue(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	updated, err := p.ReminderRepository().ReminderByID(t.Context(), "tenant-1", "rem-max")
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, 2, updated.RemindersSent)
}

func TestProcessDue_SkipsFutureReminders(t *testing.T) {
	s, p, publisher := newScheduler(t)

	now := time.Now().UTC()
	future := newReminder("rem-future", now.Add(time.Hour), models.ReminderFrequencyDaily, 3)
	require.NoError(t, p.ReminderRepository().SaveReminder(t.Context(), future))

	processed, err := s.ProcessDue(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	notifications, err := p.NotificationRepository().NotificationsForTenant(t.Context(), "tenant-1", 10)
	require.NoError(t, err)
	assert.Empty(t, notifications)
	assert.Empty(t, publisher.eventTypes())
}

func TestProcessDue_ProcessesRemindersAcrossTenants(t *testing.T) {
	s, p, _ := newScheduler(t)

	now := time.Now().UTC()
	first := newReminder("rem-a", now.Add(-time.Minute), models.ReminderFrequencyOnce, 1)
	second := newReminder("rem-b", now.Add(-time.Minute), models.ReminderFrequencyOnce, 1)
	second.TenantID = "tenant-2"
	require.NoError(t, p.ReminderRepository().SaveReminder(t.Context(), first))
	require.NoError(t, p.ReminderRepository().SaveReminder(t.Context(), second))

	processed, err := s.ProcessDue(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	forFirst, err := p.NotificationRepository().NotificationsForTenant(t.Context(), "tenant-1", 10)
	require.NoError(t, err)
	forSecond, err := p.NotificationRepository().NotificationsForTenant(t.Context(), "tenant-2", 10)
	require.NoError(t, err)
	assert.Len(t, forFirst, 1)
	assert.Len(t, forSecond, 1)
}

func TestStartAndStop(t *testing.T) {
	s, _, _ := newScheduler(t)

	require.NoError(t, s.Start(t.Context()))
	require.NoError(t, s.Stop(t.Context()))
}
