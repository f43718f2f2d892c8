package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// chatChannel posts block-kit style messages to a chat webhook.
type chatChannel struct {
	webhookURL string
	client     *http.Client
}

// NewChatChannel creates the chat delivery channel for the given webhook URL.
func NewChatChannel(webhookURL string) Channel {
	return &chatChannel{
		webhookURL: webhookURL,
		client:     &http.Client{},
	}
}

func (c *chatChannel) Name() models.NotificationChannel { return models.ChannelChat }

type chatMessage struct {
	Blocks []chatBlock `json:"blocks"`
}

type chatBlock struct {
	Type string    `json:"type"`
	Text *chatText `json:"text,omitempty"`
}

type chatText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *chatChannel) Deliver(n *models.Notification) error {
	if c.webhookURL == "" {
		return fmt.Errorf("chat webhook URL not configured")
	}

	msg := chatMessage{
		Blocks: []chatBlock{
			{
				Type: "header",
				Text: &chatText{Type: "plain_text", Text: n.Subject},
			},
			{
				Type: "section",
				Text: &chatText{Type: "mrkdwn", Text: fmt.Sprintf("%s %s\n_for %s_",
					typeEmoji(n.Type), n.Message, n.Recipient)},
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling chat message: %w", err)
	}

	resp, err := c.client.Post(c.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to chat webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func typeEmoji(t models.NotificationType) string {
	switch t {
	case models.NotifyUpdateDetected:
		return "\U0001f50d" // 🔍
	case models.NotifyApprovalRequested:
		return "⏳" // ⏳
	case models.NotifyUpdatePublished:
		return "✅" // ✅
	case models.NotifyIntegrationFailed:
		return "❌" // ❌
	default:
		return "❓" // ❓
	}
}
