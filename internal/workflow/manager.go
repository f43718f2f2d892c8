// Package workflow orchestrates the full lifecycle of one update: queueing,
// integration, approval, notification and archival. The queue owns state; the
// manager owns the order in which states are driven and the side effects that
// fire on each transition.
package workflow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mhalvorsen/skillsync/internal/archive"
	"github.com/mhalvorsen/skillsync/internal/config"
	"github.com/mhalvorsen/skillsync/internal/integrate"
	"github.com/mhalvorsen/skillsync/internal/notify"
	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/internal/queue"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// ErrNotPending is returned when a decision targets an update that is not
// awaiting approval.
var ErrNotPending = errors.New("update is not awaiting approval")

// Manager drives updates through the workflow state machine.
type Manager struct {
	queue        queue.Queue
	integrations *integrate.Manager
	notifier     notify.Notifier
	archiver     archive.Archiver
	skills       config.SkillLoader
	log          observability.EventLog

	autoArchive     bool
	approvalTimeout time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Options configures a workflow Manager.
type Options struct {
	// AutoArchive relocates update source files after terminal states.
	AutoArchive bool
	// ApprovalTimeout fails an undecided approval after this duration.
	// Zero disables the timeout.
	ApprovalTimeout time.Duration
}

// NewManager wires the workflow over its collaborators.
func NewManager(q queue.Queue, integrations *integrate.Manager, notifier notify.Notifier, archiver archive.Archiver, skills config.SkillLoader, log observability.EventLog, opts Options) *Manager {
	return &Manager{
		queue:           q,
		integrations:    integrations,
		notifier:        notifier,
		archiver:        archiver,
		skills:          skills,
		log:             log,
		autoArchive:     opts.AutoArchive,
		approvalTimeout: opts.ApprovalTimeout,
		timers:          make(map[string]*time.Timer),
	}
}

// ProcessUpdate runs one update through detection, integration and the
// post-integration side effects. The returned item reflects the queue's state
// after all side effects have fired.
func (m *Manager) ProcessUpdate(update models.UpdateFile) (*models.QueuedUpdate, error) {
	item, err := m.queue.Enqueue(update)
	if err != nil {
		return nil, fmt.Errorf("enqueueing %s: %w", update.Name, err)
	}

	// A missing or invalid skill config still lets the pipeline run; the
	// integrator reports it as a failed result and notifications no-op.
	cfg, cfgErr := m.skills.Load(update.SkillID)
	if cfgErr != nil {
		observability.Warn(m.log, observability.EventIntegration,
			fmt.Sprintf("skill config unavailable: %v", cfgErr),
			map[string]any{"queueId": item.ID, "skill": update.SkillID})
	}

	m.notifier.UpdateDetected(update, cfg)

	if err := m.queue.UpdateState(item.ID, models.StateProcessing, "integration started", "system", nil); err != nil {
		return nil, fmt.Errorf("starting processing of %s: %w", item.ID, err)
	}

	result, err := m.integrations.ProcessUpdate(update, integrate.Options{})
	if err != nil {
		result = &models.IntegrationResult{
			Status: models.IntegrationFailed,
			Update: update,
			Mode:   models.ModeRules,
			Error:  err.Error(),
		}
	}

	if err := m.queue.SetIntegrationResult(item.ID, result); err != nil {
		return nil, fmt.Errorf("recording result on %s: %w", item.ID, err)
	}

	if err := m.dispatch(item.ID, result, cfg); err != nil {
		return nil, err
	}
	return m.queue.Get(item.ID)
}

// dispatch fires the side effects owed after a result lands on the queue:
// notifications, approval bookkeeping, archival.
func (m *Manager) dispatch(id string, result *models.IntegrationResult, cfg *models.SkillConfig) error {
	item, err := m.queue.Get(id)
	if err != nil {
		return err
	}

	switch result.Status {
	case models.IntegrationSuccess:
		m.notifier.UpdatePublished(item, result, cfg)
		if m.autoArchive {
			m.archiveItem(item, true)
		}

	case models.IntegrationPendingReview:
		approval := &models.ApprovalRequest{RequestedAt: time.Now()}
		if m.approvalTimeout > 0 {
			expires := approval.RequestedAt.Add(m.approvalTimeout)
			approval.ExpiresAt = &expires
		}
		if err := m.queue.SetApproval(id, approval); err != nil {
			return fmt.Errorf("recording approval request on %s: %w", id, err)
		}
		m.notifier.ApprovalRequested(item, result.Preview, cfg)
		if m.approvalTimeout > 0 {
			m.scheduleTimeout(id, m.approvalTimeout)
		}

	default:
		m.notifier.IntegrationFailed(item, result, cfg)
		if m.autoArchive {
			m.archiveItem(item, false)
		}
	}
	return nil
}

// archiveItem relocates the update's source file and advances the item to
// archived. Archival never fails the workflow; a failure is logged and the
// item stays in its terminal state for a later archive pass.
func (m *Manager) archiveItem(item *models.QueuedUpdate, deleteOriginal bool) {
	var err error
	if deleteOriginal {
		_, err = m.archiver.ArchiveAndDelete(item)
	} else {
		_, err = m.archiver.Archive(item)
	}
	if err != nil {
		observability.Warn(m.log, observability.EventArchiveWritten,
			fmt.Sprintf("archival failed: %v", err), map[string]any{"queueId": item.ID})
		return
	}
	if err := m.queue.UpdateState(item.ID, models.StateArchived, "source file archived", "system", nil); err != nil {
		observability.Warn(m.log, observability.EventArchiveWritten,
			fmt.Sprintf("archived state not recorded: %v", err), map[string]any{"queueId": item.ID})
	}
}

// Approve resolves a pending approval in favor of the update and re-runs the
// integration with the gate lifted.
func (m *Manager) Approve(id, approver, reason string) (*models.QueuedUpdate, error) {
	item, err := m.requirePending(id)
	if err != nil {
		return nil, err
	}
	m.cancelTimeout(id)

	if err := m.recordDecision(item, true, approver, reason); err != nil {
		return nil, err
	}
	if err := m.queue.UpdateState(id, models.StateApproved, fmt.Sprintf("approved by %s", approver), approver, nil); err != nil {
		return nil, fmt.Errorf("approving %s: %w", id, err)
	}
	if err := m.queue.UpdateState(id, models.StateProcessing, "integration restarted after approval", "system", nil); err != nil {
		return nil, fmt.Errorf("restarting %s: %w", id, err)
	}

	cfg, _ := m.skills.Load(item.Update.SkillID)

	result, err := m.integrations.ProcessUpdate(item.Update, integrate.Options{ApprovalGranted: true})
	if err != nil {
		result = &models.IntegrationResult{
			Status: models.IntegrationFailed,
			Update: item.Update,
			Mode:   models.ModeRules,
			Error:  err.Error(),
		}
	}
	if err := m.queue.SetIntegrationResult(id, result); err != nil {
		return nil, fmt.Errorf("recording result on %s: %w", id, err)
	}
	if err := m.dispatch(id, result, cfg); err != nil {
		return nil, err
	}
	return m.queue.Get(id)
}

// Reject resolves a pending approval against the update.
func (m *Manager) Reject(id, approver, reason string) (*models.QueuedUpdate, error) {
	item, err := m.requirePending(id)
	if err != nil {
		return nil, err
	}
	m.cancelTimeout(id)

	if err := m.recordDecision(item, false, approver, reason); err != nil {
		return nil, err
	}
	message := fmt.Sprintf("rejected by %s", approver)
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	if err := m.queue.UpdateState(id, models.StateRejected, message, approver, nil); err != nil {
		return nil, fmt.Errorf("rejecting %s: %w", id, err)
	}

	if m.autoArchive {
		if refreshed, err := m.queue.Get(id); err == nil {
			m.archiveItem(refreshed, true)
		}
	}
	return m.queue.Get(id)
}

func (m *Manager) requirePending(id string) (*models.QueuedUpdate, error) {
	item, err := m.queue.Get(id)
	if err != nil {
		return nil, err
	}
	if item.State != models.StatePendingApproval {
		return nil, fmt.Errorf("deciding on %s in state %s: %w", id, item.State, ErrNotPending)
	}
	return item, nil
}

func (m *Manager) recordDecision(item *models.QueuedUpdate, approved bool, approver, reason string) error {
	approval := item.Approval
	if approval == nil {
		approval = &models.ApprovalRequest{RequestedAt: time.Now()}
	}
	approval.Decision = &models.ApprovalDecision{
		Approved:  approved,
		Approver:  approver,
		Reason:    reason,
		DecidedAt: time.Now(),
	}
	if err := m.queue.SetApproval(item.ID, approval); err != nil {
		return fmt.Errorf("recording decision on %s: %w", item.ID, err)
	}
	return nil
}

// scheduleTimeout arms the approval deadline for one item. Timers are keyed
// by item id so a decision can cancel exactly its own timer.
func (m *Manager) scheduleTimeout(id string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.timers[id]; ok {
		existing.Stop()
	}
	m.timers[id] = time.AfterFunc(d, func() {
		m.expireApproval(id)
	})
}

func (m *Manager) cancelTimeout(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.timers[id]; ok {
		timer.Stop()
		delete(m.timers, id)
	}
}

// expireApproval fails an item whose approval deadline passed undecided.
// The pending-state check makes expiry a no-op when a decision raced the
// timer.
func (m *Manager) expireApproval(id string) {
	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()

	item, err := m.queue.Get(id)
	if err != nil || item.State != models.StatePendingApproval {
		return
	}

	if err := m.queue.UpdateState(id, models.StateFailed, "approval timeout expired", "system", nil); err != nil {
		observability.Warn(m.log, observability.EventStateChanged,
			fmt.Sprintf("approval expiry not recorded: %v", err), map[string]any{"queueId": id})
		return
	}

	cfg, _ := m.skills.Load(item.Update.SkillID)
	if refreshed, err := m.queue.Get(id); err == nil {
		m.notifier.IntegrationFailed(refreshed, refreshed.Result, cfg)
		if m.autoArchive {
			m.archiveItem(refreshed, false)
		}
	}
}

// Resume re-arms approval timers for items that were pending when the
// process last stopped. Deadlines already past expire immediately.
func (m *Manager) Resume() {
	for _, item := range m.queue.List(models.StatePendingApproval) {
		if item.Approval == nil || item.Approval.ExpiresAt == nil {
			continue
		}
		remaining := time.Until(*item.Approval.ExpiresAt)
		if remaining <= 0 {
			m.expireApproval(item.ID)
			continue
		}
		m.scheduleTimeout(item.ID, remaining)
	}
}

// Stop cancels all armed approval timers. Pending items keep their recorded
// deadlines and are re-armed by Resume on the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, timer := range m.timers {
		timer.Stop()
		delete(m.timers, id)
	}
}
