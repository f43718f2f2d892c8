package models

import "time"

// NotificationType identifies which lifecycle event a notification reports.
type NotificationType string

const (
	NotifyUpdateDetected    NotificationType = "update-detected"
	NotifyApprovalRequested NotificationType = "approval-requested"
	NotifyUpdatePublished   NotificationType = "update-published"
	NotifyIntegrationFailed NotificationType = "integration-failed"
)

// NotificationChannel names a delivery channel.
type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "email"
	ChannelChat    NotificationChannel = "chat"
	ChannelWebhook NotificationChannel = "webhook"
	ChannelNone    NotificationChannel = "none"
)

// Notification is one delivery attempt across one or more channels. It is
// appended to the in-memory history and never mutated after delivery
// completes. Error collects per-channel failures; a failure on one channel
// does not prevent delivery on the others.
type Notification struct {
	ID          string                `json:"id"`
	Type        NotificationType      `json:"type"`
	Recipient   string                `json:"recipient"`
	Subject     string                `json:"subject"`
	Message     string                `json:"message"`
	Channels    []NotificationChannel `json:"channels"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
	SentAt      time.Time             `json:"sentAt"`
	DeliveredAt *time.Time            `json:"deliveredAt,omitempty"`
	Error       string                `json:"error,omitempty"`
}
