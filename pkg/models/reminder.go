package models

import "time"

// ReminderFrequency controls how often an automated reminder repeats.
type ReminderFrequency string

const (
	ReminderFrequencyOnce    ReminderFrequency = "once"
	ReminderFrequencyDaily   ReminderFrequency = "daily"
	ReminderFrequencyWeekly  ReminderFrequency = "weekly"
	ReminderFrequencyMonthly ReminderFrequency = "monthly"
)

// NextAfter returns the next fire time following from, or nil when the
// frequency does not repeat.
func (f ReminderFrequency) NextAfter(from time.Time) *time.Time {
	var next time.Time

	switch f {
	case ReminderFrequencyDaily:
		next = from.AddDate(0, 0, 1)
	case ReminderFrequencyWeekly:
		next = from.AddDate(0, 0, 7)
	case ReminderFrequencyMonthly:
		next = from.AddDate(0, 1, 0)
	default:
		return nil
	}

	return &next
}

// Reminder is an automated follow-up created by the create_reminder action
// and processed by the scheduler. A reminder retires once RemindersSent
// reaches MaxReminders or its frequency does not repeat.
type Reminder struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id"     validate:"required"`
	EntityType    EntityType        `json:"entity_type"`
	EntityID      string            `json:"entity_id"`
	ReminderType  string            `json:"reminder_type"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	RemindAt      time.Time         `json:"remind_at"`
	Frequency     ReminderFrequency `json:"reminder_frequency"`
	MaxReminders  int               `json:"max_reminders"`
	RemindersSent int               `json:"reminders_sent"`
	Active        bool              `json:"active"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
