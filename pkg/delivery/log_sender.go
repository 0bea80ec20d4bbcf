package delivery

import (
	"context"
	"log/slog"

	"github.com/fieldflow/fieldflow/pkg/models"
)

// LogSender writes the notification to the log instead of an external
// provider. It stands in for email and SMS transports in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "log_sender")}
}

func (s *LogSender) Send(ctx context.Context, notification *models.Notification) (models.NotificationStatus, error) {
	s.logger.InfoContext(ctx, "Delivering notification",
		"notification_id", notification.ID,
		"type", notification.NotificationType,
		"recipient_email", notification.RecipientEmail,
		"recipient_phone", notification.RecipientPhone,
		"title", notification.Title,
	)

	return models.NotificationStatusSent, nil
}
