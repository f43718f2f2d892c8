// Package watcher feeds the workflow from the inbox directory: it parses
// update files and watches for new ones with fsnotify, debouncing the bursts
// of events editors produce while a file is still being written.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/internal/section"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// debounceDelay is how long a file must be quiet before it is ingested.
const debounceDelay = 500 * time.Millisecond

// ParseUpdateFile reads an update markdown file and builds its UpdateFile
// record from the frontmatter. The skill ID is the first applyTo entry.
func ParseUpdateFile(path string) (*models.UpdateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading update file: %w", err)
	}

	meta, body := section.ExtractFrontmatter(string(data))
	if len(meta) == 0 {
		return nil, fmt.Errorf("update file %s has no frontmatter", filepath.Base(path))
	}

	metadata := models.UpdateMetadata{
		Type:          models.UpdateType(meta["type"]),
		Category:      meta["category"],
		Priority:      models.UpdatePriority(meta["priority"]),
		TargetSection: meta["targetSection"],
		ApplyTo:       splitList(meta["applyTo"]),
		Status:        models.UpdateStatus(meta["status"]),
		Author:        meta["author"],
		DateAdded:     meta["dateAdded"],
		Tags:          splitList(meta["tags"]),
	}
	if metadata.Priority == "" {
		metadata.Priority = models.PriorityMedium
	}
	if err := metadata.Validate(); err != nil {
		return nil, fmt.Errorf("update file %s: %w", filepath.Base(path), err)
	}

	return &models.UpdateFile{
		Path:       path,
		Name:       filepath.Base(path),
		Metadata:   metadata,
		Content:    strings.TrimSpace(body),
		SkillID:    metadata.ApplyTo[0],
		DetectedAt: time.Now(),
	}, nil
}

// splitList parses a comma-separated frontmatter value into its entries.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Handler receives each successfully parsed update.
type Handler func(update models.UpdateFile)

// Watcher tails an inbox directory and hands parsed updates to a handler.
type Watcher struct {
	dir     string
	handler Handler
	log     observability.EventLog

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher over the inbox directory.
func New(dir string, handler Handler, log observability.EventLog) *Watcher {
	return &Watcher{
		dir:     dir,
		handler: handler,
		log:     log,
		pending: make(map[string]*time.Timer),
	}
}

// Scan ingests every markdown file already in the inbox. It is called once
// before watching so files dropped while the process was down are not missed.
func (w *Watcher) Scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scanning inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isUpdateFile(entry.Name()) {
			continue
		}
		w.ingest(filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// Run watches the inbox until the context is cancelled. The directory is
// created if missing so watching a fresh base path works out of the box.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating inbox directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	if err := w.Scan(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isUpdateFile(filepath.Base(event.Name)) {
				continue
			}
			w.debounce(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			observability.Warn(w.log, observability.EventWatcherSkipped,
				fmt.Sprintf("watch error: %v", err), nil)
		}
	}
}

// debounce (re)arms the quiet-period timer for one path. Editors emit several
// write events per save; only the last one should trigger ingestion.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// ingest parses one inbox file and hands it to the handler. A malformed file
// is logged and left in place for the author to fix; it never stops the
// watcher.
func (w *Watcher) ingest(path string) {
	update, err := ParseUpdateFile(path)
	if err != nil {
		observability.Warn(w.log, observability.EventWatcherSkipped, err.Error(),
			map[string]any{"path": path})
		return
	}
	observability.Info(w.log, observability.EventUpdateDetected, update.Name,
		map[string]any{"skill": update.SkillID, "type": string(update.Metadata.Type)})
	w.handler(*update)
}

func isUpdateFile(name string) bool {
	return strings.HasSuffix(name, ".md") && !strings.HasPrefix(name, ".")
}
