package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// webhookChannel posts the raw notification as JSON to a generic endpoint.
type webhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel creates the generic webhook delivery channel.
func NewWebhookChannel(url string) Channel {
	return &webhookChannel{
		url:    url,
		client: &http.Client{},
	}
}

func (w *webhookChannel) Name() models.NotificationChannel { return models.ChannelWebhook }

type webhookPayload struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (w *webhookChannel) Deliver(n *models.Notification) error {
	if w.url == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	body, err := json.Marshal(webhookPayload{
		ID:        n.ID,
		Type:      string(n.Type),
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Message:   n.Message,
		Metadata:  n.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
