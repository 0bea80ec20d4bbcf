package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// ReminderRepository handles automated reminders.
type ReminderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const reminderColumns = `
	id, tenant_id, entity_type, entity_id, reminder_type, title, message,
	remind_at, reminder_frequency, max_reminders, reminders_sent, active,
	created_at, updated_at
`

func (r *ReminderRepository) SaveReminder(ctx context.Context, reminder *models.Reminder) error {
	query := `
		INSERT INTO automated_reminders (
			id, tenant_id, entity_type, entity_id, reminder_type, title, message,
			remind_at, reminder_frequency, max_reminders, reminders_sent, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.TenantID,
		string(reminder.EntityType),
		reminder.EntityID,
		reminder.ReminderType,
		reminder.Title,
		reminder.Message,
		reminder.RemindAt,
		string(reminder.Frequency),
		reminder.MaxReminders,
		reminder.RemindersSent,
		reminder.Active,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save reminder", "reminder_id", reminder.ID, "error", err)

		return fmt.Errorf("failed to save reminder: %w", err)
	}

	return nil
}

func (r *ReminderRepository) ReminderByID(ctx context.Context, tenantID, id string) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM automated_reminders WHERE id = $1 AND tenant_id = $2`

	reminder, err := scanReminder(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan reminder: %w", err)
	}

	return reminder, nil
}

// DueReminders is not tenant scoped: the scheduler processes all tenants in
// one sweep.
func (r *ReminderRepository) DueReminders(ctx context.Context, due time.Time) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM automated_reminders
		WHERE active AND remind_at <= $1
		ORDER BY remind_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, due)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reminders := make([]*models.Reminder, 0)

	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder row: %w", err)
		}

		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder rows: %w", err)
	}

	return reminders, nil
}

// RecordReminderSent advances the send counter and either reschedules the
// reminder or retires it. A nil nextRemindAt retires immediately; hitting
// max_reminders retires as well.
func (r *ReminderRepository) RecordReminderSent(ctx context.Context, tenantID, id string, nextRemindAt *time.Time) error {
	now := time.Now().UTC()

	var (
		result sql.Result
		err    error
	)

	if nextRemindAt == nil {
		query := `
			UPDATE automated_reminders
			SET reminders_sent = reminders_sent + 1, active = FALSE, updated_at = $3
			WHERE id = $1 AND tenant_id = $2
		`
		result, err = r.db.ExecContext(ctx, query, id, tenantID, now)
	} else {
		query := `
			UPDATE automated_reminders
			SET reminders_sent = reminders_sent + 1,
				remind_at = $3,
				active = (reminders_sent + 1 < max_reminders),
				updated_at = $4
			WHERE id = $1 AND tenant_id = $2
		`
		result, err = r.db.ExecContext(ctx, query, id, tenantID, *nextRemindAt, now)
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to record reminder sent", "reminder_id", id, "error", err)

		return fmt.Errorf("failed to record reminder sent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record reminder sent: %w", err)
	}

	if affected == 0 {
		return persistence.ErrReminderNotFound
	}

	return nil
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var (
		reminder   models.Reminder
		entityType string
		frequency  string
	)

	err := row.Scan(
		&reminder.ID,
		&reminder.TenantID,
		&entityType,
		&reminder.EntityID,
		&reminder.ReminderType,
		&reminder.Title,
		&reminder.Message,
		&reminder.RemindAt,
		&frequency,
		&reminder.MaxReminders,
		&reminder.RemindersSent,
		&reminder.Active,
		&reminder.CreatedAt,
		&reminder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reminder.EntityType = models.EntityType(entityType)
	reminder.Frequency = models.ReminderFrequency(frequency)

	return &reminder, nil
}
