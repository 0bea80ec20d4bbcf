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

const remindersCollection = "reminders"

// ReminderRepository handles automated reminder file operations.
type ReminderRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *ReminderRepository) SaveReminder(_ context.Context, reminder *models.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.root, remindersCollection, reminder.ID, reminder)
}

func (r *ReminderRepository) ReminderByID(_ context.Context, tenantID, id string) (*models.Reminder, error) {
	reminder := &models.Reminder{}

	found, err := readDocument(r.root, remindersCollection, id, reminder)
	if err != nil {
		return nil, err
	}

	if !found || reminder.TenantID != tenantID {
		return nil, nil
	}

	return reminder, nil
}

// DueReminders returns every active reminder across tenants whose remind_at
// is not after due, oldest first.
func (r *ReminderRepository) DueReminders(_ context.Context, due time.Time) ([]*models.Reminder, error) {
	ids, err := listDocumentIDs(r.root, remindersCollection)
	if err != nil {
		return nil, err
	}

	reminders := make([]*models.Reminder, 0)

	for _, id := range ids {
		reminder := &models.Reminder{}

		found, err := readDocument(r.root, remindersCollection, id, reminder)
		if err != nil {
			return nil, fmt.Errorf("failed to load reminder %s: %w", id, err)
		}

		if found && reminder.Active && !reminder.RemindAt.After(due) {
			reminders = append(reminders, reminder)
		}
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].RemindAt.Before(reminders[j].RemindAt)
	})

	return reminders, nil
}

// RecordReminderSent increments the sent counter and either advances
// remind_at or retires the reminder when nextRemindAt is nil or the
// max_reminders budget is spent.
func (r *ReminderRepository) RecordReminderSent(ctx context.Context, tenantID, id string, nextRemindAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminder, err := r.ReminderByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if reminder == nil {
		return persistence.ErrReminderNotFound
	}

	reminder.RemindersSent++
	reminder.UpdatedAt = time.Now().UTC()

	if nextRemindAt == nil || reminder.RemindersSent >= reminder.MaxReminders {
		reminder.Active = false
	} else {
		reminder.RemindAt = *nextRemindAt
	}

	return writeDocument(r.root, remindersCollection, id, reminder)
}
