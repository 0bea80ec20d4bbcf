// Package delivery moves pending notifications out through their channel
// senders and records every attempt on the notification row.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// Sender pushes one notification through an outbound channel. It returns the
// delivery status reached by the attempt (sent or delivered) or an error.
type Sender interface {
	Send(ctx context.Context, notification *models.Notification) (models.NotificationStatus, error)
}

// A notification stays pending across failed attempts until it hits the
// attempt cap, so redelivered events retry it.
const maxDeliveryAttempts = 3

// Deliverer consumes notification created events and attempts delivery. It
// is safe to redeliver the same event; terminal notifications are left
// alone.
type Deliverer struct {
	persistence persistence.Persistence
	senders     map[models.NotificationType]Sender
	logger      *slog.Logger
}

func NewDeliverer(p persistence.Persistence, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		persistence: p,
		senders:     make(map[models.NotificationType]Sender),
		logger:      logger.With("module", "deliverer"),
	}
}

func (d *Deliverer) RegisterSender(notificationType models.NotificationType, sender Sender) {
	d.senders[notificationType] = sender
}

// Run subscribes the deliverer on the event bus and blocks until the
// subscription is set up.
func (d *Deliverer) Run(ctx context.Context, bus eventbus.EventBus) error {
	err := bus.Handle(events.NotificationCreatedEvent, func(ctx context.Context, event any) error {
		created, ok := event.(*events.NotificationCreated)
		if !ok {
			return fmt.Errorf("unexpected event payload: %T", event)
		}

		return d.Deliver(ctx, created.TenantID, created.NotificationID)
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}

// Deliver attempts delivery for one notification.
func (d *Deliverer) Deliver(ctx context.Context, tenantID, notificationID string) error {
	notifications := d.persistence.NotificationRepository()

	notification, err := notifications.NotificationByID(ctx, tenantID, notificationID)
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}

	if notification == nil {
		return persistence.ErrNotificationNotFound
	}

	if notification.Status.IsTerminal() {
		d.logger.DebugContext(ctx, "Notification already in terminal state, skipping",
			"notification_id", notificationID, "status", notification.Status)

		return nil
	}

	// In-app notifications live in the mailbox itself; storing the row is
	// the delivery.
	if notification.NotificationType == models.NotificationTypeInApp {
		now := time.Now().UTC()

		return notifications.RecordDeliveryAttempt(ctx, tenantID, notificationID, persistence.DeliveryAttempt{
			Status:      models.NotificationStatusDelivered,
			AttemptedAt: now,
			DeliveredAt: &now,
		})
	}

	sender, ok := d.senders[notification.NotificationType]
	if !ok {
		d.logger.WarnContext(ctx, "No sender registered for notification type, leaving pending",
			"notification_id", notificationID, "type", notification.NotificationType)

		return nil
	}

	attemptedAt := time.Now().UTC()

	status, sendErr := sender.Send(ctx, notification)

	attempt := persistence.DeliveryAttempt{
		Status:      status,
		AttemptedAt: attemptedAt,
	}

	if sendErr != nil {
		attempt.Status = models.NotificationStatusPending
		if notification.DeliveryAttempts+1 >= maxDeliveryAttempts {
			attempt.Status = models.NotificationStatusFailed
		}

		attempt.ErrorMessage = sendErr.Error()

		d.logger.ErrorContext(ctx, "Delivery attempt failed",
			"notification_id", notificationID, "type", notification.NotificationType,
			"attempt", notification.DeliveryAttempts+1, "error", sendErr)
	} else if status == models.NotificationStatusDelivered {
		deliveredAt := time.Now().UTC()
		attempt.DeliveredAt = &deliveredAt
	}

	if err := notifications.RecordDeliveryAttempt(ctx, tenantID, notificationID, attempt); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	if sendErr != nil {
		if attempt.Status.IsTerminal() {
			return nil
		}

		// The attempt is recorded but the notification is still pending.
		// Surfacing the error makes the bus handler reject the event so it
		// is redelivered for the next attempt.
		return fmt.Errorf("delivery attempt failed: %w", sendErr)
	}

	d.logger.InfoContext(ctx, "Notification dispatched",
		"notification_id", notificationID, "type", notification.NotificationType, "status", attempt.Status)

	return nil
}
