package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// mailboxChannel implements the email channel as a file outbox: each
// notification becomes one markdown file with YAML frontmatter under the
// outbox directory, where an external mail bridge (or a human) picks it up.
// Delivery stays observable and testable without network access.
type mailboxChannel struct {
	outboxDir string
}

// NewMailboxChannel creates the email delivery channel writing to outboxDir.
func NewMailboxChannel(outboxDir string) (Channel, error) {
	if outboxDir == "" {
		return nil, fmt.Errorf("creating mailbox channel: outbox dir is empty")
	}
	if err := os.MkdirAll(outboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating outbox directory: %w", err)
	}
	return &mailboxChannel{outboxDir: outboxDir}, nil
}

func (m *mailboxChannel) Name() models.NotificationChannel { return models.ChannelEmail }

// mailFrontmatter is the YAML frontmatter written on each outbox file.
type mailFrontmatter struct {
	ID       string            `yaml:"id"`
	To       string            `yaml:"to"`
	Subject  string            `yaml:"subject"`
	Date     string            `yaml:"date"`
	Type     string            `yaml:"type"`
	Status   string            `yaml:"status"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

func (m *mailboxChannel) Deliver(n *models.Notification) error {
	fm := mailFrontmatter{
		ID:       n.ID,
		To:       n.Recipient,
		Subject:  n.Subject,
		Date:     time.Now().UTC().Format(time.RFC3339),
		Type:     string(n.Type),
		Status:   "sent",
		Metadata: n.Metadata,
	}

	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("marshaling mail frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fmBytes)
	b.WriteString("---\n\n")
	b.WriteString(n.Message)
	b.WriteString("\n")

	name := fmt.Sprintf("%s_%s.md", time.Now().UTC().Format("20060102T150405"), n.ID)
	path := filepath.Join(m.outboxDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing outbox file: %w", err)
	}
	return nil
}
