package models

import "time"

// ArchiveMetadata records the provenance of one archived update source file.
// One metadata file is written per archived document, co-located with the
// archived copy.
type ArchiveMetadata struct {
	OriginalPath string             `json:"originalPath"`
	ArchivedPath string             `json:"archivedPath"`
	ArchivedAt   time.Time          `json:"archivedAt"`
	SkillID      string             `json:"skillId"`
	State        WorkflowState      `json:"state"`
	Result       *IntegrationResult `json:"result,omitempty"`
}

// ArchivedFile pairs an archived copy with its metadata record.
type ArchivedFile struct {
	Path string          `json:"path"`
	Meta ArchiveMetadata `json:"meta"`
}

// ArchiveStats summarizes archive contents by state bucket and skill.
type ArchiveStats struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"byState"`
	BySkill map[string]int `json:"bySkill"`
}
