package file

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

const notificationsCollection = "notifications"

// NotificationRepository handles notification mailbox file operations.
type NotificationRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *NotificationRepository) SaveNotification(_ context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.root, notificationsCollection, notification.ID, notification)
}

func (r *NotificationRepository) NotificationByID(_ context.Context, tenantID, id string) (*models.Notification, error) {
	notification := &models.Notification{}

	found, err := readDocument(r.root, notificationsCollection, id, notification)
	if err != nil {
		return nil, err
	}

	if !found || notification.TenantID != tenantID {
		return nil, nil
	}

	return notification, nil
}

func (r *NotificationRepository) NotificationsForRecipient(ctx context.Context, tenantID, recipientID string, limit int) ([]*models.Notification, error) {
	return r.list(ctx, tenantID, limit, func(n *models.Notification) bool {
		return n.RecipientID == recipientID
	})
}

func (r *NotificationRepository) NotificationsForTenant(ctx context.Context, tenantID string, limit int) ([]*models.Notification, error) {
	return r.list(ctx, tenantID, limit, func(*models.Notification) bool { return true })
}

// MarkRead sets read_at once; marking an already-read notification is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, tenantID, id string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification, err := r.NotificationByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if notification == nil {
		return persistence.ErrNotificationNotFound
	}

	if notification.ReadAt != nil {
		return nil
	}

	notification.ReadAt = &readAt
	notification.UpdatedAt = readAt

	return writeDocument(r.root, notificationsCollection, id, notification)
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, tenantID, recipientID string) (int, error) {
	notifications, err := r.list(ctx, tenantID, 0, func(n *models.Notification) bool {
		return n.RecipientID == recipientID && n.ReadAt == nil
	})
	if err != nil {
		return 0, err
	}

	return len(notifications), nil
}

func (r *NotificationRepository) RecordDeliveryAttempt(ctx context.Context, tenantID, id string, attempt persistence.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification, err := r.NotificationByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if notification == nil {
		return persistence.ErrNotificationNotFound
	}

	notification.Status = attempt.Status
	notification.DeliveryAttempts++
	notification.LastAttemptAt = &attempt.AttemptedAt
	notification.DeliveredAt = attempt.DeliveredAt
	notification.ErrorMessage = attempt.ErrorMessage
	notification.UpdatedAt = attempt.AttemptedAt

	return writeDocument(r.root, notificationsCollection, id, notification)
}

func (r *NotificationRepository) list(_ context.Context, tenantID string, limit int, match func(*models.Notification) bool) ([]*models.Notification, error) {
	ids, err := listDocumentIDs(r.root, notificationsCollection)
	if err != nil {
		return nil, err
	}

	notifications := make([]*models.Notification, 0)

	for _, id := range ids {
		notification := &models.Notification{}

		found, err := readDocument(r.root, notificationsCollection, id, notification)
		if err != nil {
			return nil, fmt.Errorf("failed to load notification %s: %w", id, err)
		}

		if found && notification.TenantID == tenantID && match(notification) {
			notifications = append(notifications, notification)
		}
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}

	return notifications, nil
}
