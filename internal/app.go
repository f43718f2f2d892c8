// Package internal provides the App struct that wires all components of the
// skillsync engine together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mhalvorsen/skillsync/internal/archive"
	"github.com/mhalvorsen/skillsync/internal/cli"
	"github.com/mhalvorsen/skillsync/internal/config"
	"github.com/mhalvorsen/skillsync/internal/integrate"
	"github.com/mhalvorsen/skillsync/internal/notify"
	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/internal/queue"
	"github.com/mhalvorsen/skillsync/internal/workflow"
)

// App holds all service dependencies for the skillsync engine.
type App struct {
	BasePath string
	Cfg      *config.EngineConfig

	// Storage layer
	Queue  queue.Queue
	Skills config.SkillLoader

	// Core services
	Integrations *integrate.Manager
	Workflow     *workflow.Manager
	Archiver     archive.Archiver
	Notifier     notify.Notifier

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of the skillsync engine. basePath
// is the root directory where skills, the inbox, the queue, and the archive
// live (typically the directory containing .skillsync.yaml).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	cfg, err := config.LoadEngineConfig(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading engine config: %w", err)
	}
	app.Cfg = cfg

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(cfg.EventLogPath)
	if err != nil {
		// Non-fatal: run without the event log if it can't be created.
		app.EventLog = nil
	}

	// --- Storage layer ---
	app.Queue = queue.New(cfg.QueueDir)
	if err := app.Queue.Initialize(); err != nil {
		return nil, fmt.Errorf("loading queue: %w", err)
	}
	app.Skills = config.NewSkillLoader(cfg.SkillsDir)

	// --- Notification channels ---
	var channels []notify.Channel
	if cfg.Channels.ChatWebhookURL != "" {
		channels = append(channels, notify.NewChatChannel(cfg.Channels.ChatWebhookURL))
	}
	if cfg.Channels.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel(cfg.Channels.WebhookURL))
	}
	if cfg.Channels.OutboxDir != "" {
		mailbox, mailboxErr := notify.NewMailboxChannel(cfg.Channels.OutboxDir)
		if mailboxErr == nil {
			channels = append(channels, mailbox) // Non-fatal if the outbox can't be created.
		}
	}
	app.Notifier = notify.New(app.EventLog, channels...)

	// --- Core services ---
	app.Archiver = archive.New(cfg.ArchiveDir, app.EventLog)
	app.Integrations = integrate.NewManager(app.Skills, app.EventLog, cfg.DuplicateThreshold)
	app.Workflow = workflow.NewManager(app.Queue, app.Integrations, app.Notifier, app.Archiver, app.Skills, app.EventLog, workflow.Options{
		AutoArchive:     cfg.AutoArchive,
		ApprovalTimeout: cfg.ApprovalTimeout,
	})

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Cfg = cfg
	cli.Queue = app.Queue
	cli.Skills = app.Skills
	cli.Integrations = app.Integrations
	cli.Workflow = app.Workflow
	cli.Archiver = app.Archiver
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the skillsync data directory.
// It checks the SKILLSYNC_HOME env var, then walks up from the current
// directory looking for .skillsync.yaml, and falls back to cwd.
func ResolveBasePath() string {
	if home := os.Getenv("SKILLSYNC_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".skillsync.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
