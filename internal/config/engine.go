// Package config loads the engine's own configuration and the per-skill
// policy files that govern how each living document accepts updates.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// EngineConfig is the process-wide configuration, read from .skillsync.yaml
// in the base directory. Every component receives the slice of it it needs
// through its constructor; there is no shared mutable config singleton.
type EngineConfig struct {
	SkillsDir    string
	InboxDir     string
	QueueDir     string
	ArchiveDir   string
	EventLogPath string

	// AutoArchive relocates update source files after terminal states.
	AutoArchive bool
	// ApprovalTimeout fails a pending approval that has not been decided in
	// time. Zero disables the timeout.
	ApprovalTimeout time.Duration
	// DuplicateThreshold is the default word-overlap ratio for skills that
	// do not configure their own.
	DuplicateThreshold float64

	Channels ChannelEndpoints
}

// ChannelEndpoints configures where each notification channel delivers.
type ChannelEndpoints struct {
	ChatWebhookURL string
	WebhookURL     string
	OutboxDir      string
}

// defaultEngineConfig returns an EngineConfig rooted at basePath.
func defaultEngineConfig(basePath string) *EngineConfig {
	return &EngineConfig{
		SkillsDir:          filepath.Join(basePath, "skills"),
		InboxDir:           filepath.Join(basePath, "inbox"),
		QueueDir:           filepath.Join(basePath, ".queue"),
		ArchiveDir:         filepath.Join(basePath, "archive"),
		EventLogPath:       filepath.Join(basePath, ".skillsync_events.jsonl"),
		AutoArchive:        true,
		ApprovalTimeout:    0,
		DuplicateThreshold: 0.8,
		Channels: ChannelEndpoints{
			OutboxDir: filepath.Join(basePath, "outbox"),
		},
	}
}

// LoadEngineConfig reads .skillsync.yaml from basePath. If the file does not
// exist, defaults are returned.
func LoadEngineConfig(basePath string) (*EngineConfig, error) {
	cfg := defaultEngineConfig(basePath)

	v := viper.New()
	v.SetConfigName(".skillsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(basePath)

	v.SetDefault("dirs.skills", cfg.SkillsDir)
	v.SetDefault("dirs.inbox", cfg.InboxDir)
	v.SetDefault("dirs.queue", cfg.QueueDir)
	v.SetDefault("dirs.archive", cfg.ArchiveDir)
	v.SetDefault("event_log", cfg.EventLogPath)
	v.SetDefault("auto_archive", cfg.AutoArchive)
	v.SetDefault("approval_timeout", "0s")
	v.SetDefault("duplicate_threshold", cfg.DuplicateThreshold)
	v.SetDefault("channels.outbox_dir", cfg.Channels.OutboxDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .skillsync.yaml: %w", err)
	}

	cfg.SkillsDir = v.GetString("dirs.skills")
	cfg.InboxDir = v.GetString("dirs.inbox")
	cfg.QueueDir = v.GetString("dirs.queue")
	cfg.ArchiveDir = v.GetString("dirs.archive")
	cfg.EventLogPath = v.GetString("event_log")
	cfg.AutoArchive = v.GetBool("auto_archive")
	cfg.ApprovalTimeout = v.GetDuration("approval_timeout")
	cfg.DuplicateThreshold = v.GetFloat64("duplicate_threshold")
	cfg.Channels.ChatWebhookURL = v.GetString("channels.chat_webhook_url")
	cfg.Channels.WebhookURL = v.GetString("channels.webhook_url")
	cfg.Channels.OutboxDir = v.GetString("channels.outbox_dir")

	if cfg.DuplicateThreshold <= 0 || cfg.DuplicateThreshold > 1 {
		return nil, fmt.Errorf("duplicate_threshold %v out of range (0, 1]", cfg.DuplicateThreshold)
	}

	return cfg, nil
}

// Validate sanity-checks a loaded skill configuration.
func validateSkillConfig(cfg *models.SkillConfig, skillID string) error {
	if cfg.Version == "" {
		return fmt.Errorf("skill %s: config has no version", skillID)
	}
	if cfg.Expert.Name == "" {
		return fmt.Errorf("skill %s: config names no expert", skillID)
	}
	for updateType := range cfg.IntegrationRules {
		if !updateType.Valid() {
			return fmt.Errorf("skill %s: integration rule for unknown update type %q", skillID, updateType)
		}
	}
	if cfg.Notifications != nil {
		for _, ch := range cfg.Notifications.Channels {
			switch ch {
			case models.ChannelEmail, models.ChannelChat, models.ChannelWebhook, models.ChannelNone:
			default:
				return fmt.Errorf("skill %s: unknown notification channel %q", skillID, ch)
			}
		}
	}
	return nil
}
