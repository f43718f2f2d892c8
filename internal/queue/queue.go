// Package queue implements the durable registry of every update's lifecycle.
// Each queued update is persisted as one JSON file under the queue directory,
// keyed by its identifier, with an append-only history of state transitions.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

var (
	// ErrNotFound is returned when no queued update has the given id.
	ErrNotFound = errors.New("queue item not found")
	// ErrIllegalTransition is returned when a requested state change is not
	// in the workflow transition table.
	ErrIllegalTransition = errors.New("illegal workflow transition")
	// ErrStaleWrite is returned when the on-disk record is newer than the
	// in-memory copy being saved.
	ErrStaleWrite = errors.New("stale queue write")
)

// Queue is the durable update registry. It exclusively owns QueuedUpdate
// state transitions; other components only read items or ask the queue to
// advance them.
type Queue interface {
	// Initialize reloads every persisted item into memory. Malformed files
	// are skipped rather than failing the load.
	Initialize() error

	// Enqueue registers a new update, seeding its history with the synthetic
	// "detected" and "queued" events, and persists it immediately.
	Enqueue(update models.UpdateFile) (*models.QueuedUpdate, error)

	// Get returns a copy of the item with the given id.
	Get(id string) (*models.QueuedUpdate, error)

	// List returns copies of all items, optionally filtered by state,
	// ordered by creation time.
	List(states ...models.WorkflowState) []models.QueuedUpdate

	// UpdateState advances an item to newState, appending one history event
	// and persisting. Transitions not in the workflow table are rejected
	// with ErrIllegalTransition.
	UpdateState(id string, newState models.WorkflowState, message, actor string, metadata map[string]string) error

	// SetIntegrationResult stores an attempt's result and advances the item
	// to the workflow state its status maps to. This is the sole bridge
	// between the integrator's result vocabulary and the queue's lifecycle
	// vocabulary.
	SetIntegrationResult(id string, result *models.IntegrationResult) error

	// SetApproval attaches an approval request to an item.
	SetApproval(id string, approval *models.ApprovalRequest) error

	// Remove dequeues an item and deletes its record.
	Remove(id string) error

	// Cleanup removes items whose state is integrated or archived and whose
	// last update predates the cutoff. Pending and failed items are never
	// touched regardless of age; failures require explicit operator action.
	Cleanup(olderThanDays int) (int, error)
}

type fileQueue struct {
	dir   string
	mu    sync.Mutex
	items map[string]*models.QueuedUpdate
}

// New creates a Queue persisting one JSON record per item under dir.
func New(dir string) Queue {
	return &fileQueue{
		dir:   dir,
		items: make(map[string]*models.QueuedUpdate),
	}
}

func (q *fileQueue) itemPath(id string) string {
	return filepath.Join(q.dir, id+".json")
}

func (q *fileQueue) Initialize() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return fmt.Errorf("reading queue directory: %w", err)
	}

	q.items = make(map[string]*models.QueuedUpdate)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(q.dir, entry.Name()))
		if err != nil {
			continue
		}
		var item models.QueuedUpdate
		if err := json.Unmarshal(data, &item); err != nil {
			// Partial or interrupted write; leave the file for inspection.
			continue
		}
		if item.ID == "" || !item.State.Valid() {
			continue
		}
		q.items[item.ID] = &item
	}
	return nil
}

func (q *fileQueue) Enqueue(update models.UpdateFile) (*models.QueuedUpdate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	item := &models.QueuedUpdate{
		ID:     uuid.NewString(),
		Update: update,
		State:  models.StateQueued,
		History: []models.WorkflowEvent{
			{
				Timestamp: update.DetectedAt,
				State:     models.StateDetected,
				Actor:     "watcher",
				Message:   fmt.Sprintf("update detected: %s", update.Name),
			},
			{
				Timestamp: now,
				State:     models.StateQueued,
				Actor:     "system",
				Message:   "queued for processing",
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if item.History[0].Timestamp.IsZero() {
		item.History[0].Timestamp = now
	}

	if err := q.save(item); err != nil {
		return nil, err
	}
	q.items[item.ID] = item

	copied := *item
	return &copied, nil
}

func (q *fileQueue) Get(id string) (*models.QueuedUpdate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return nil, fmt.Errorf("getting queue item %s: %w", id, ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (q *fileQueue) List(states ...models.WorkflowState) []models.QueuedUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []models.QueuedUpdate
	for _, item := range q.items {
		if len(states) > 0 && !containsState(states, item.State) {
			continue
		}
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (q *fileQueue) UpdateState(id string, newState models.WorkflowState, message, actor string, metadata map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.updateStateLocked(id, newState, message, actor, metadata)
}

func (q *fileQueue) updateStateLocked(id string, newState models.WorkflowState, message, actor string, metadata map[string]string) error {
	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("updating state of %s: %w", id, ErrNotFound)
	}
	if !item.State.CanTransitionTo(newState) {
		return fmt.Errorf("updating state of %s: %s -> %s: %w", id, item.State, newState, ErrIllegalTransition)
	}

	// Stage the transition on a copy and commit only after the save lands,
	// so a failed write (stale version, disk error) leaves the in-memory
	// item matching what is on disk.
	now := time.Now()
	updated := *item
	updated.History = append(append([]models.WorkflowEvent(nil), item.History...), models.WorkflowEvent{
		Timestamp: now,
		State:     newState,
		Actor:     actor,
		Message:   message,
		Metadata:  metadata,
	})
	updated.State = newState
	updated.UpdatedAt = now

	if err := q.save(&updated); err != nil {
		return err
	}
	*item = updated
	return nil
}

// ResultState maps an integration status to the workflow state it drives the
// queue into. Every status has exactly one mapping.
func ResultState(status models.IntegrationStatus) (models.WorkflowState, error) {
	switch status {
	case models.IntegrationSuccess:
		return models.StateIntegrated, nil
	case models.IntegrationPendingReview:
		return models.StatePendingApproval, nil
	case models.IntegrationDuplicate, models.IntegrationVoiceMismatch, models.IntegrationFailed:
		return models.StateFailed, nil
	}
	return "", fmt.Errorf("unmapped integration status %q", status)
}

func (q *fileQueue) SetIntegrationResult(id string, result *models.IntegrationResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("setting result on %s: %w", id, ErrNotFound)
	}

	state, err := ResultState(result.Status)
	if err != nil {
		return fmt.Errorf("setting result on %s: %w", id, err)
	}
	prev := item.Result
	item.Result = result

	message := resultMessage(result)
	if err := q.updateStateLocked(id, state, message, "system", nil); err != nil {
		item.Result = prev
		return err
	}
	return nil
}

func resultMessage(result *models.IntegrationResult) string {
	switch result.Status {
	case models.IntegrationSuccess:
		return "integration succeeded"
	case models.IntegrationPendingReview:
		return "awaiting expert approval"
	case models.IntegrationDuplicate:
		return fmt.Sprintf("rejected as duplicate: %s", result.Error)
	case models.IntegrationVoiceMismatch:
		return fmt.Sprintf("rejected for voice mismatch: %s", result.Error)
	default:
		return fmt.Sprintf("integration failed: %s", result.Error)
	}
}

func (q *fileQueue) SetApproval(id string, approval *models.ApprovalRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("setting approval on %s: %w", id, ErrNotFound)
	}
	updated := *item
	updated.Approval = approval
	updated.UpdatedAt = time.Now()
	if err := q.save(&updated); err != nil {
		return err
	}
	*item = updated
	return nil
}

func (q *fileQueue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[id]; !ok {
		return fmt.Errorf("removing %s: %w", id, ErrNotFound)
	}
	if err := os.Remove(q.itemPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing record of %s: %w", id, err)
	}
	delete(q.items, id)
	return nil
}

func (q *fileQueue) Cleanup(olderThanDays int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	removed := 0
	for id, item := range q.items {
		if item.State != models.StateIntegrated && item.State != models.StateArchived {
			continue
		}
		if !item.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(q.itemPath(id)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("cleaning up %s: %w", id, err)
		}
		delete(q.items, id)
		removed++
	}
	return removed, nil
}

// save persists an item, incrementing its version. If the record on disk
// already carries a newer version than the copy being written, the write is
// rejected with ErrStaleWrite instead of last-write-wins.
func (q *fileQueue) save(item *models.QueuedUpdate) error {
	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}

	path := q.itemPath(item.ID)
	if data, err := os.ReadFile(path); err == nil {
		var onDisk models.QueuedUpdate
		if err := json.Unmarshal(data, &onDisk); err == nil && onDisk.Version > item.Version {
			return fmt.Errorf("saving %s: disk version %d > memory version %d: %w",
				item.ID, onDisk.Version, item.Version, ErrStaleWrite)
		}
	}

	item.Version++
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling queue item %s: %w", item.ID, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing queue item %s: %w", item.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing queue item %s: %w", item.ID, err)
	}
	return nil
}

func containsState(states []models.WorkflowState, s models.WorkflowState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
