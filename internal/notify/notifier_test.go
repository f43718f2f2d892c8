package notify

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

func testSkillConfig(channels ...models.NotificationChannel) *models.SkillConfig {
	return &models.SkillConfig{
		Version: "1.0",
		Expert:  models.ExpertConfig{Name: "alice"},
		Notifications: &models.NotificationsConfig{
			Channels:          channels,
			UpdateDetected:    true,
			ApprovalRequested: true,
			UpdatePublished:   true,
			IntegrationFailed: true,
		},
	}
}

func testUpdateFile() models.UpdateFile {
	return models.UpdateFile{
		Name: "fix.md",
		Metadata: models.UpdateMetadata{
			Type:          models.UpdateCorrection,
			Priority:      models.PriorityHigh,
			TargetSection: "Introduction",
			ApplyTo:       []string{"sales-calls"},
		},
		Content:    "fix",
		SkillID:    "sales-calls",
		DetectedAt: time.Now(),
	}
}

func TestSendDeliversToAllChannels(t *testing.T) {
	var chatHits, webhookHits int
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatHits++
	}))
	defer chatSrv.Close()
	webhookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHits++
	}))
	defer webhookSrv.Close()

	n := New(observability.Nop(), NewChatChannel(chatSrv.URL), NewWebhookChannel(webhookSrv.URL))
	sent, err := n.Send(models.NotifyUpdatePublished, "alice", "subject", "message",
		[]models.NotificationChannel{models.ChannelChat, models.ChannelWebhook}, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if chatHits != 1 || webhookHits != 1 {
		t.Errorf("hits = chat %d, webhook %d; want 1 each", chatHits, webhookHits)
	}
	if sent.Error != "" {
		t.Errorf("unexpected error field: %q", sent.Error)
	}
	if sent.DeliveredAt == nil {
		t.Error("DeliveredAt not set")
	}
}

func TestSendIsolatesChannelFailures(t *testing.T) {
	// Chat fails hard; webhook succeeds.
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer chatSrv.Close()
	var webhookHits int
	webhookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHits++
	}))
	defer webhookSrv.Close()

	n := New(observability.Nop(), NewChatChannel(chatSrv.URL), NewWebhookChannel(webhookSrv.URL))
	sent, err := n.Send(models.NotifyIntegrationFailed, "alice", "s", "m",
		[]models.NotificationChannel{models.ChannelChat, models.ChannelWebhook}, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if webhookHits != 1 {
		t.Error("webhook channel was not attempted after chat failure")
	}
	if !strings.Contains(sent.Error, "chat") {
		t.Errorf("error field %q does not record the chat failure", sent.Error)
	}
	if sent.DeliveredAt == nil {
		t.Error("partial delivery should still set DeliveredAt")
	}
}

func TestSendUnconfiguredChannelRecorded(t *testing.T) {
	n := New(observability.Nop())
	sent, err := n.Send(models.NotifyUpdateDetected, "alice", "s", "m",
		[]models.NotificationChannel{models.ChannelChat}, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(sent.Error, "not configured") {
		t.Errorf("error = %q, want channel-not-configured", sent.Error)
	}
	if sent.DeliveredAt != nil {
		t.Error("nothing was delivered; DeliveredAt must be nil")
	}
}

func TestFormattersNoOpWhenDisabled(t *testing.T) {
	n := New(observability.Nop())

	// Nil config, nil notifications block, and empty channel list all no-op.
	if got := n.UpdateDetected(testUpdateFile(), nil); got != nil {
		t.Error("nil config should produce no notification")
	}
	if got := n.UpdateDetected(testUpdateFile(), &models.SkillConfig{}); got != nil {
		t.Error("missing notifications block should produce no notification")
	}
	if got := n.UpdateDetected(testUpdateFile(), testSkillConfig()); got != nil {
		t.Error("empty channel list should produce no notification")
	}

	cfg := testSkillConfig(models.ChannelNone)
	cfg.Notifications.UpdateDetected = false
	if got := n.UpdateDetected(testUpdateFile(), cfg); got != nil {
		t.Error("disabled type should produce no notification")
	}

	if len(n.History()) != 0 {
		t.Errorf("no-ops recorded %d notifications", len(n.History()))
	}
}

func TestMailboxChannelWritesOutboxFile(t *testing.T) {
	dir := t.TempDir()
	ch, err := NewMailboxChannel(dir)
	if err != nil {
		t.Fatalf("creating mailbox: %v", err)
	}

	n := New(observability.Nop(), ch)
	update := testUpdateFile()
	sent := n.UpdateDetected(update, testSkillConfig(models.ChannelEmail))
	if sent == nil {
		t.Fatal("expected a notification")
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("outbox entries = %d (%v), want 1", len(entries), err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		t.Error("outbox file missing frontmatter delimiter")
	}
	if !strings.Contains(content, "to: alice") {
		t.Errorf("frontmatter missing recipient:\n%s", content)
	}
	if !strings.Contains(content, update.Name) {
		t.Error("body missing update name")
	}
}

func TestHistoryAndByType(t *testing.T) {
	n := New(observability.Nop())
	_, _ = n.Send(models.NotifyUpdateDetected, "a", "s1", "m",
		[]models.NotificationChannel{models.ChannelNone}, nil)
	_, _ = n.Send(models.NotifyUpdatePublished, "a", "s2", "m",
		[]models.NotificationChannel{models.ChannelNone}, nil)
	_, _ = n.Send(models.NotifyUpdatePublished, "a", "s3", "m",
		[]models.NotificationChannel{models.ChannelNone}, nil)

	if got := len(n.History()); got != 3 {
		t.Errorf("history = %d entries, want 3", got)
	}
	if got := len(n.ByType(models.NotifyUpdatePublished)); got != 2 {
		t.Errorf("ByType(published) = %d, want 2", got)
	}
	if got := len(n.ByType(models.NotifyIntegrationFailed)); got != 0 {
		t.Errorf("ByType(failed) = %d, want 0", got)
	}
}
