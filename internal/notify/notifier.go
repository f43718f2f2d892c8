// Package notify delivers lifecycle notifications across multiple channels.
// Delivery is attempted independently per channel; a failure on one channel
// is recorded on the notification but never prevents the remaining channels
// from being attempted.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// Channel is one delivery backend.
type Channel interface {
	// Name returns the channel identifier used in skill configs.
	Name() models.NotificationChannel

	// Deliver sends one notification through this channel.
	Deliver(n *models.Notification) error
}

// Notifier sends lifecycle notifications and keeps an in-memory history of
// everything sent this process lifetime. Durable audit lives in the queue,
// not here.
type Notifier interface {
	Send(nType models.NotificationType, recipient, subject, message string, channels []models.NotificationChannel, metadata map[string]string) (*models.Notification, error)

	// Lifecycle formatters. Each returns nil when the skill's config has
	// disabled that notification type or specifies no channels.
	UpdateDetected(update models.UpdateFile, cfg *models.SkillConfig) *models.Notification
	ApprovalRequested(item *models.QueuedUpdate, preview *models.IntegrationPreview, cfg *models.SkillConfig) *models.Notification
	UpdatePublished(item *models.QueuedUpdate, result *models.IntegrationResult, cfg *models.SkillConfig) *models.Notification
	IntegrationFailed(item *models.QueuedUpdate, result *models.IntegrationResult, cfg *models.SkillConfig) *models.Notification

	History() []models.Notification
	ByType(t models.NotificationType) []models.Notification
}

type notifier struct {
	mu       sync.Mutex
	channels map[models.NotificationChannel]Channel
	history  []models.Notification
	log      observability.EventLog
}

// New creates a Notifier with the given delivery channels registered.
func New(log observability.EventLog, channels ...Channel) Notifier {
	n := &notifier{
		channels: make(map[models.NotificationChannel]Channel),
		log:      log,
	}
	for _, ch := range channels {
		n.channels[ch.Name()] = ch
	}
	return n
}

func (n *notifier) Send(nType models.NotificationType, recipient, subject, message string, channels []models.NotificationChannel, metadata map[string]string) (*models.Notification, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("sending notification: no channels given")
	}

	notification := &models.Notification{
		ID:        uuid.NewString(),
		Type:      nType,
		Recipient: recipient,
		Subject:   subject,
		Message:   message,
		Channels:  channels,
		Metadata:  metadata,
		SentAt:    time.Now(),
	}

	var failures []string
	delivered := false
	for _, name := range channels {
		if name == models.ChannelNone {
			continue
		}
		ch, ok := n.channels[name]
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: channel not configured", name))
			continue
		}
		if err := ch.Deliver(notification); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			observability.Warn(n.log, observability.EventNotifyFailed,
				fmt.Sprintf("delivery on %s failed", name),
				map[string]any{"notification": notification.ID, "error": err.Error()})
			continue
		}
		delivered = true
	}

	if len(failures) > 0 {
		notification.Error = strings.Join(failures, "; ")
	}
	if delivered {
		now := time.Now()
		notification.DeliveredAt = &now
		observability.Info(n.log, observability.EventNotifySent, string(nType),
			map[string]any{"notification": notification.ID, "recipient": recipient})
	}

	n.mu.Lock()
	n.history = append(n.history, *notification)
	n.mu.Unlock()

	return notification, nil
}

// enabled reports whether a skill's config asks for this notification type,
// and returns the channel list and recipient to use.
func enabled(cfg *models.SkillConfig, nType models.NotificationType) ([]models.NotificationChannel, string, bool) {
	if cfg == nil || cfg.Notifications == nil || len(cfg.Notifications.Channels) == 0 {
		return nil, "", false
	}
	nc := cfg.Notifications

	var want bool
	switch nType {
	case models.NotifyUpdateDetected:
		want = nc.UpdateDetected
	case models.NotifyApprovalRequested:
		want = nc.ApprovalRequested
	case models.NotifyUpdatePublished:
		want = nc.UpdatePublished
	case models.NotifyIntegrationFailed:
		want = nc.IntegrationFailed
	}
	if !want {
		return nil, "", false
	}

	recipient := nc.Recipient
	if recipient == "" {
		recipient = cfg.Expert.Name
	}
	return nc.Channels, recipient, true
}

func (n *notifier) UpdateDetected(update models.UpdateFile, cfg *models.SkillConfig) *models.Notification {
	channels, recipient, ok := enabled(cfg, models.NotifyUpdateDetected)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("New %s update for %s", update.Metadata.Type, update.SkillID)
	message := fmt.Sprintf("Update %s was detected targeting section %q (priority %s).",
		update.Name, update.Metadata.TargetSection, update.Metadata.Priority)
	sent, _ := n.Send(models.NotifyUpdateDetected, recipient, subject, message, channels,
		map[string]string{"skill": update.SkillID, "update": update.Name})
	return sent
}

func (n *notifier) ApprovalRequested(item *models.QueuedUpdate, preview *models.IntegrationPreview, cfg *models.SkillConfig) *models.Notification {
	channels, recipient, ok := enabled(cfg, models.NotifyApprovalRequested)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Approval needed: %s update for %s", item.Update.Metadata.Type, item.Update.SkillID)

	var b strings.Builder
	fmt.Fprintf(&b, "Update %s is waiting for approval (queue id %s).\n", item.Update.Name, item.ID)
	if preview != nil {
		fmt.Fprintf(&b, "Target section: %s\n", preview.TargetSection)
		if len(preview.Warnings) > 0 {
			fmt.Fprintf(&b, "Warnings: %s\n", strings.Join(preview.Warnings, "; "))
		}
	}
	sent, _ := n.Send(models.NotifyApprovalRequested, recipient, subject, b.String(), channels,
		map[string]string{"skill": item.Update.SkillID, "queueId": item.ID})
	return sent
}

func (n *notifier) UpdatePublished(item *models.QueuedUpdate, result *models.IntegrationResult, cfg *models.SkillConfig) *models.Notification {
	channels, recipient, ok := enabled(cfg, models.NotifyUpdatePublished)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Update integrated into %s", item.Update.SkillID)
	message := fmt.Sprintf("Update %s was integrated into section %q.",
		item.Update.Name, item.Update.Metadata.TargetSection)
	if result != nil && result.ChangelogEntry != "" {
		message += "\nChangelog: " + result.ChangelogEntry
	}
	sent, _ := n.Send(models.NotifyUpdatePublished, recipient, subject, message, channels,
		map[string]string{"skill": item.Update.SkillID, "queueId": item.ID})
	return sent
}

func (n *notifier) IntegrationFailed(item *models.QueuedUpdate, result *models.IntegrationResult, cfg *models.SkillConfig) *models.Notification {
	channels, recipient, ok := enabled(cfg, models.NotifyIntegrationFailed)
	if !ok {
		return nil
	}
	reason := "unknown"
	if result != nil {
		reason = string(result.Status)
		if result.Error != "" {
			reason = fmt.Sprintf("%s: %s", result.Status, result.Error)
		}
	}
	subject := fmt.Sprintf("Update for %s was not integrated", item.Update.SkillID)
	message := fmt.Sprintf("Update %s (queue id %s) ended without integration.\nReason: %s",
		item.Update.Name, item.ID, reason)
	sent, _ := n.Send(models.NotifyIntegrationFailed, recipient, subject, message, channels,
		map[string]string{"skill": item.Update.SkillID, "queueId": item.ID})
	return sent
}

func (n *notifier) History() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.history))
	copy(out, n.history)
	return out
}

func (n *notifier) ByType(t models.NotificationType) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, record := range n.history {
		if record.Type == t {
			out = append(out, record)
		}
	}
	return out
}
