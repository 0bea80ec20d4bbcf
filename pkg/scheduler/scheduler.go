// Package scheduler sweeps due automated reminders on a cron cadence and
// turns each one into a notification.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

const defaultCronExpr = "* * * * *"

type Scheduler struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	cronExpr    string
	cron        *cron.Cron
}

// NewScheduler validates the cron expression up front. An empty expression
// means every minute.
func NewScheduler(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger, cronExpr string) (*Scheduler, error) {
	if cronExpr == "" {
		cronExpr = defaultCronExpr
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	return &Scheduler{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "scheduler"),
		cronExpr:    cronExpr,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting reminder scheduler", "cron", s.cronExpr)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		processed, err := s.ProcessDue(ctx, time.Now().UTC())
		if err != nil {
			s.logger.ErrorContext(ctx, "Reminder sweep failed", "error", err)

			return
		}

		if processed > 0 {
			s.logger.InfoContext(ctx, "Reminder sweep finished", "processed", processed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping reminder scheduler")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	return nil
}

// ProcessDue handles every reminder due at the given instant and returns how
// many were processed. A failing reminder does not stop the sweep.
func (s *Scheduler) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.persistence.ReminderRepository().DueReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load due reminders: %w", err)
	}

	processed := 0

	for _, reminder := range due {
		if err := s.processReminder(ctx, reminder, now); err != nil {
			s.logger.ErrorContext(ctx, "Failed to process reminder",
				"tenant_id", reminder.TenantID, "reminder_id", reminder.ID, "error", err)

			continue
		}

		processed++
	}

	return processed, nil
}

func (s *Scheduler) processReminder(ctx context.Context, reminder *models.Reminder, now time.Time) error {
	notification := &models.Notification{
		ID:               uuid.New().String(),
		TenantID:         reminder.TenantID,
		RecipientType:    models.RecipientTypeUser,
		NotificationType: models.NotificationTypeInApp,
		Category:         "reminder",
		Title:            reminder.Title,
		Message:          reminder.Message,
		Data: map[string]any{
			"reminder_id":   reminder.ID,
			"reminder_type": reminder.ReminderType,
			"entity_type":   string(reminder.EntityType),
			"entity_id":     reminder.EntityID,
		},
		Status:     models.NotificationStatusPending,
		EntityID:   reminder.EntityID,
		EntityType: reminder.EntityType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.persistence.NotificationRepository().SaveNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to save reminder notification: %w", err)
	}

	s.publish(ctx, reminder.TenantID, events.ReminderDue{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ReminderDueEvent,
			Timestamp: now,
			TenantID:  reminder.TenantID,
		},
		ReminderID: reminder.ID,
		EntityType: reminder.EntityType,
		EntityID:   reminder.EntityID,
	})

	s.publish(ctx, reminder.TenantID, events.NotificationCreated{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.NotificationCreatedEvent,
			Timestamp: now,
			TenantID:  reminder.TenantID,
		},
		NotificationID:   notification.ID,
		RecipientType:    notification.RecipientType,
		NotificationType: notification.NotificationType,
	})

	// The next fire time stays anchored to the reminder's own schedule, not
	// to when the sweep happened to run.
	next := reminder.Frequency.NextAfter(reminder.RemindAt)

	if err := s.persistence.ReminderRepository().RecordReminderSent(ctx, reminder.TenantID, reminder.ID, next); err != nil {
		return fmt.Errorf("failed to record reminder sent: %w", err)
	}

	return nil
}

func (s *Scheduler) publish(ctx context.Context, tenantID string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, tenantID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"tenant_id", tenantID, "event_type", event.GetType(), "error", err)
	}
}
