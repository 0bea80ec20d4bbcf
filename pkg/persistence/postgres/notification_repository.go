package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// NotificationRepository handles the notification mailbox.
type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *NotificationRepository) SaveNotification(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (
			id, tenant_id, recipient_type, recipient_id, recipient_email, recipient_phone,
			notification_type, category, title, message, data, status,
			delivery_attempts, last_attempt_at, delivered_at, read_at, error_message,
			workflow_execution_id, entity_id, entity_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	dataJSON, err := json.Marshal(notification.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize notification data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		notification.ID,
		notification.TenantID,
		string(notification.RecipientType),
		notification.RecipientID,
		notification.RecipientEmail,
		notification.RecipientPhone,
		string(notification.NotificationType),
		notification.Category,
		notification.Title,
		notification.Message,
		string(dataJSON),
		string(notification.Status),
		notification.DeliveryAttempts,
		notification.LastAttemptAt,
		notification.DeliveredAt,
		notification.ReadAt,
		notification.ErrorMessage,
		notification.ExecutionID,
		notification.EntityID,
		string(notification.EntityType),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save notification", "notification_id", notification.ID, "error", err)

		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

const notificationColumns = `
	id, tenant_id, recipient_type, recipient_id, recipient_email, recipient_phone,
	notification_type, category, title, message, data, status,
	delivery_attempts, last_attempt_at, delivered_at, read_at, error_message,
	workflow_execution_id, entity_id, entity_type, created_at, updated_at
`

func (r *NotificationRepository) NotificationByID(ctx context.Context, tenantID, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND tenant_id = $2`

	notification, err := scanNotification(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	return notification, nil
}

func (r *NotificationRepository) NotificationsForRecipient(ctx context.Context, tenantID, recipientID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE tenant_id = $1 AND recipient_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	return r.queryNotifications(ctx, query, tenantID, recipientID, limit)
}

func (r *NotificationRepository) NotificationsForTenant(ctx context.Context, tenantID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryNotifications(ctx, query, tenantID, limit)
}

// MarkRead sets read_at once. The read_at IS NULL predicate makes a second
// call a no-op instead of an error.
func (r *NotificationRepository) MarkRead(ctx context.Context, tenantID, id string, readAt time.Time) error {
	query := `
		UPDATE notifications
		SET read_at = $3, updated_at = $3
		WHERE id = $1 AND tenant_id = $2 AND read_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, tenantID, readAt)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if affected > 0 {
		return nil
	}

	notification, err := r.NotificationByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if notification == nil {
		return persistence.ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, tenantID, recipientID string) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE tenant_id = $1 AND recipient_id = $2 AND read_at IS NULL
	`

	err := r.db.QueryRowContext(ctx, query, tenantID, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (r *NotificationRepository) RecordDeliveryAttempt(ctx context.Context, tenantID, id string, attempt persistence.DeliveryAttempt) error {
	query := `
		UPDATE notifications
		SET status = $3,
			delivery_attempts = delivery_attempts + 1,
			last_attempt_at = $4,
			delivered_at = $5,
			error_message = $6,
			updated_at = $4
		WHERE id = $1 AND tenant_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, tenantID,
		string(attempt.Status), attempt.AttemptedAt, attempt.DeliveredAt, attempt.ErrorMessage)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to record delivery attempt", "notification_id", id, "error", err)

		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	if affected == 0 {
		return persistence.ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepository) queryNotifications(ctx context.Context, query string, args ...any) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}

		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}

	return notifications, nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		notification     models.Notification
		recipientType    string
		notificationType string
		status           string
		entityType       string
		dataJSON         string
		lastAttemptAt    sql.NullTime
		deliveredAt      sql.NullTime
		readAt           sql.NullTime
	)

	err := row.Scan(
		&notification.ID,
		&notification.TenantID,
		&recipientType,
		&notification.RecipientID,
		&notification.RecipientEmail,
		&notification.RecipientPhone,
		&notificationType,
		&notification.Category,
		&notification.Title,
		&notification.Message,
		&dataJSON,
		&status,
		&notification.DeliveryAttempts,
		&lastAttemptAt,
		&deliveredAt,
		&readAt,
		&notification.ErrorMessage,
		&notification.ExecutionID,
		&notification.EntityID,
		&entityType,
		&notification.CreatedAt,
		&notification.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	notification.RecipientType = models.RecipientType(recipientType)
	notification.NotificationType = models.NotificationType(notificationType)
	notification.Status = models.NotificationStatus(status)
	notification.EntityType = models.EntityType(entityType)

	if lastAttemptAt.Valid {
		notification.LastAttemptAt = &lastAttemptAt.Time
	}

	if deliveredAt.Valid {
		notification.DeliveredAt = &deliveredAt.Time
	}

	if readAt.Valid {
		notification.ReadAt = &readAt.Time
	}

	err = json.Unmarshal([]byte(dataJSON), &notification.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification data: %w", err)
	}

	return &notification, nil
}
