// Package models defines the shared data types for the skillsync update
// workflow: update files and their metadata, per-skill configuration,
// integration results, queue items, archive records, and notifications.
package models

import (
	"fmt"
	"time"
)

// UpdateType classifies what kind of change an update proposes.
type UpdateType string

const (
	UpdateFramework  UpdateType = "framework"
	UpdateExample    UpdateType = "example"
	UpdateTemplate   UpdateType = "template"
	UpdatePlaybook   UpdateType = "playbook"
	UpdateCorrection UpdateType = "correction"
	UpdateExpansion  UpdateType = "expansion"
	UpdateCaseStudy  UpdateType = "case-study"
)

// UpdateTypes lists every valid update type.
var UpdateTypes = []UpdateType{
	UpdateFramework,
	UpdateExample,
	UpdateTemplate,
	UpdatePlaybook,
	UpdateCorrection,
	UpdateExpansion,
	UpdateCaseStudy,
}

// Valid reports whether t is one of the enumerated update types.
func (t UpdateType) Valid() bool {
	for _, known := range UpdateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UpdatePriority indicates how urgently an update should be integrated.
type UpdatePriority string

const (
	PriorityLow      UpdatePriority = "low"
	PriorityMedium   UpdatePriority = "medium"
	PriorityHigh     UpdatePriority = "high"
	PriorityCritical UpdatePriority = "critical"
)

// Valid reports whether p is one of the enumerated priorities.
func (p UpdatePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// UpdateStatus is the authoring status of an update source file.
type UpdateStatus string

const (
	UpdateDraft     UpdateStatus = "draft"
	UpdateReady     UpdateStatus = "ready"
	UpdatePublished UpdateStatus = "published"
)

// UpdateMetadata is the frontmatter-derived descriptor of one pending change.
type UpdateMetadata struct {
	Type          UpdateType     `json:"type"`
	Category      string         `json:"category,omitempty"`
	Priority      UpdatePriority `json:"priority"`
	TargetSection string         `json:"targetSection"`
	ApplyTo       []string       `json:"applyTo"`
	Status        UpdateStatus   `json:"status,omitempty"`
	Author        string         `json:"author,omitempty"`
	DateAdded     string         `json:"dateAdded,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// Validate checks that the enumerated fields carry legal values.
// A validation error fails ingestion before any side effect occurs.
func (m UpdateMetadata) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("invalid update type %q", m.Type)
	}
	if !m.Priority.Valid() {
		return fmt.Errorf("invalid update priority %q", m.Priority)
	}
	if m.TargetSection == "" {
		return fmt.Errorf("target section is empty")
	}
	if len(m.ApplyTo) == 0 {
		return fmt.Errorf("applyTo lists no targets")
	}
	return nil
}

// UpdateFile is the immutable record of one update source file. It is created
// once by the watcher (or whoever feeds the workflow) and never mutated.
type UpdateFile struct {
	Path       string         `json:"path"`
	Name       string         `json:"name"`
	Metadata   UpdateMetadata `json:"metadata"`
	Content    string         `json:"content"`
	SkillID    string         `json:"skillId"`
	DetectedAt time.Time      `json:"detectedAt"`
}
