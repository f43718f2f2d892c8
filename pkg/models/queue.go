package models

import "time"

// WorkflowState is the lifecycle state of a queued update. The state set and
// its transition graph form the update workflow's state machine.
type WorkflowState string

const (
	StateDetected        WorkflowState = "detected"
	StateQueued          WorkflowState = "queued"
	StateProcessing      WorkflowState = "processing"
	StatePendingApproval WorkflowState = "pending-approval"
	StateApproved        WorkflowState = "approved"
	StateRejected        WorkflowState = "rejected"
	StateIntegrated      WorkflowState = "integrated"
	StateFailed          WorkflowState = "failed"
	StateArchived        WorkflowState = "archived"
)

// WorkflowStates lists every workflow state.
var WorkflowStates = []WorkflowState{
	StateDetected,
	StateQueued,
	StateProcessing,
	StatePendingApproval,
	StateApproved,
	StateRejected,
	StateIntegrated,
	StateFailed,
	StateArchived,
}

// workflowTransitions is the explicit transition table: from-state to the set
// of allowed to-states. States absent from the map are terminal.
var workflowTransitions = map[WorkflowState][]WorkflowState{
	StateDetected:        {StateQueued},
	StateQueued:          {StateProcessing},
	StateProcessing:      {StateIntegrated, StatePendingApproval, StateFailed},
	StatePendingApproval: {StateApproved, StateRejected, StateFailed},
	StateApproved:        {StateProcessing},
	StateRejected:        {StateArchived},
	StateIntegrated:      {StateArchived},
	StateFailed:          {StateArchived},
}

// Valid reports whether s is a declared workflow state.
func (s WorkflowState) Valid() bool {
	for _, known := range WorkflowStates {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is legal.
func (s WorkflowState) CanTransitionTo(next WorkflowState) bool {
	for _, allowed := range workflowTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions besides archival.
// Archived is the final sink; integrated, rejected and failed are terminal
// outcomes that may still be archived.
func (s WorkflowState) Terminal() bool {
	switch s {
	case StateIntegrated, StateRejected, StateFailed, StateArchived:
		return true
	}
	return false
}

// WorkflowEvent is one entry in a queue item's append-only history. History
// is the audit trail: it is never rewritten, only appended.
type WorkflowEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	State     WorkflowState     `json:"state"`
	Actor     string            `json:"actor"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ApprovalRequest tracks a pending human decision on one queued update.
type ApprovalRequest struct {
	RequestedAt time.Time         `json:"requestedAt"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	Decision    *ApprovalDecision `json:"decision,omitempty"`
}

// ApprovalDecision records the outcome of an approval request.
type ApprovalDecision struct {
	Approved  bool      `json:"approved"`
	Approver  string    `json:"approver"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// QueuedUpdate is the durable unit of work tracking one update through its
// lifecycle. It is persisted as one JSON record per item, keyed by ID, and
// mutated only by appending history and advancing State/UpdatedAt.
type QueuedUpdate struct {
	ID       string             `json:"id"`
	Update   UpdateFile         `json:"update"`
	State    WorkflowState      `json:"state"`
	Result   *IntegrationResult `json:"result,omitempty"`
	Approval *ApprovalRequest   `json:"approval,omitempty"`
	History  []WorkflowEvent    `json:"history"`
	// Version counts persisted writes; it is the optimistic concurrency token
	// checked on save so a stale in-memory copy cannot clobber newer state.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
