package models

import "time"

// RecipientType identifies the audience class a notification is addressed to.
type RecipientType string

const (
	RecipientTypeUser          RecipientType = "user"
	RecipientTypeContact       RecipientType = "contact"
	RecipientTypeVendor        RecipientType = "vendor"
	RecipientTypeSubcontractor RecipientType = "subcontractor"
	RecipientTypeExternal      RecipientType = "external"
)

// NotificationType is the delivery channel of a notification.
type NotificationType string

const (
	NotificationTypeEmail   NotificationType = "email"
	NotificationTypeSMS     NotificationType = "sms"
	NotificationTypeInApp   NotificationType = "in_app"
	NotificationTypeWebhook NotificationType = "webhook"
)

// NotificationStatus is the delivery state of a notification.
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusFailed    NotificationStatus = "failed"
	NotificationStatusBounced   NotificationStatus = "bounced"
)

// IsTerminal reports whether delivery processing is finished for the status.
func (s NotificationStatus) IsTerminal() bool {
	return s == NotificationStatusDelivered || s == NotificationStatusFailed || s == NotificationStatusBounced
}

// Notification is one row of a recipient's durable mailbox. The engine never
// deletes notifications; the consuming UI may hide them, not purge them.
// ReadAt is set at most once and never cleared.
type Notification struct {
	ID               string             `json:"id"`
	TenantID         string             `json:"tenant_id"          validate:"required"`
	RecipientType    RecipientType      `json:"recipient_type"     validate:"required"`
	RecipientID      string             `json:"recipient_id,omitempty"`
	RecipientEmail   string             `json:"recipient_email,omitempty"`
	RecipientPhone   string             `json:"recipient_phone,omitempty"`
	NotificationType NotificationType   `json:"notification_type"  validate:"required"`
	Category         string             `json:"category"`
	Title            string             `json:"title"`
	Message          string             `json:"message"`
	Data             map[string]any     `json:"data,omitempty"`
	Status           NotificationStatus `json:"status"`
	DeliveryAttempts int                `json:"delivery_attempts"`
	LastAttemptAt    *time.Time         `json:"last_attempt_at,omitempty"`
	DeliveredAt      *time.Time         `json:"delivered_at,omitempty"`
	ReadAt           *time.Time         `json:"read_at,omitempty"`
	ErrorMessage     string             `json:"error_message,omitempty"`
	ExecutionID      string             `json:"workflow_execution_id,omitempty"`
	EntityID         string             `json:"entity_id,omitempty"`
	EntityType       EntityType         `json:"entity_type,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
