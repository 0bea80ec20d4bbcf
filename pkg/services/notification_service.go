package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

const (
	defaultRecipientLimit = 50
	defaultTenantLimit    = 100
	maxListLimit          = 500
)

// NotificationService is the read side of the notification mailbox plus the
// manual send path. Workflow-driven notifications are created by the engine,
// not here.
type NotificationService struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewNotificationService(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		persistence: persistence,
		publisher:   publisher,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "notification_service"),
	}
}

func (s *NotificationService) ListForRecipient(ctx context.Context, tctx models.TenantContext, recipientID string, limit int) ([]*models.Notification, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	return s.persistence.NotificationRepository().
		NotificationsForRecipient(ctx, tctx.TenantID, recipientID, clampLimit(limit, defaultRecipientLimit))
}

func (s *NotificationService) ListForTenant(ctx context.Context, tctx models.TenantContext, limit int) ([]*models.Notification, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	return s.persistence.NotificationRepository().
		NotificationsForTenant(ctx, tctx.TenantID, clampLimit(limit, defaultTenantLimit))
}

func (s *NotificationService) MarkRead(ctx context.Context, tctx models.TenantContext, id string) error {
	if err := tctx.Validate(); err != nil {
		return err
	}

	return s.persistence.NotificationRepository().MarkRead(ctx, tctx.TenantID, id, time.Now().UTC())
}

func (s *NotificationService) UnreadCount(ctx context.Context, tctx models.TenantContext, recipientID string) (int, error) {
	if err := tctx.Validate(); err != nil {
		return 0, err
	}

	return s.persistence.NotificationRepository().UnreadCount(ctx, tctx.TenantID, recipientID)
}

// Get loads a single notification.
func (s *NotificationService) Get(ctx context.Context, tctx models.TenantContext, id string) (*models.Notification, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	notification, err := s.persistence.NotificationRepository().NotificationByID(ctx, tctx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	if notification == nil {
		return nil, persistence.ErrNotificationNotFound
	}

	return notification, nil
}

// Send creates a tenant-initiated notification outside any workflow and
// announces it on the event bus so the deliverer picks it up.
func (s *NotificationService) Send(ctx context.Context, tctx models.TenantContext, notification *models.Notification) (*models.Notification, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	notification.TenantID = tctx.TenantID

	if notification.NotificationType == "" {
		notification.NotificationType = models.NotificationTypeInApp
	}

	if notification.RecipientType == "" {
		notification.RecipientType = models.RecipientTypeUser
	}

	notification.Status = models.NotificationStatusPending
	notification.DeliveryAttempts = 0

	now := time.Now().UTC()
	notification.CreatedAt = now
	notification.UpdatedAt = now

	if err := s.validator.Struct(notification); err != nil {
		return nil, NewValidationError(err.Error())
	}

	if err := s.persistence.NotificationRepository().SaveNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	event := events.NotificationCreated{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.NotificationCreatedEvent,
			Timestamp: now,
			TenantID:  tctx.TenantID,
		},
		NotificationID:   notification.ID,
		RecipientType:    notification.RecipientType,
		NotificationType: notification.NotificationType,
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, tctx.TenantID, event); err != nil {
			// Publish failure does not fail the send; the row is already persisted.
			s.logger.ErrorContext(ctx, "Failed to publish notification created event",
				"notification_id", notification.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "Notification sent",
		"tenant_id", tctx.TenantID, "notification_id", notification.ID, "type", notification.NotificationType)

	return notification, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}

	if limit > maxListLimit {
		return maxListLimit
	}

	return limit
}
