package models

// IntegrationMode selects how an update is merged into its target document.
type IntegrationMode string

const (
	// ModeRules is the deterministic template/append-driven path.
	ModeRules IntegrationMode = "rules-based"
	// ModeAIPowered is a documented future extension. Updates eligible for it
	// currently fall back to ModeRules.
	ModeAIPowered IntegrationMode = "ai-powered"
)

// IntegrationStatus is the outcome vocabulary of one integration attempt.
type IntegrationStatus string

const (
	IntegrationSuccess       IntegrationStatus = "success"
	IntegrationPendingReview IntegrationStatus = "pending-review"
	IntegrationFailed        IntegrationStatus = "failed"
	IntegrationDuplicate     IntegrationStatus = "duplicate"
	IntegrationVoiceMismatch IntegrationStatus = "voice-mismatch"
)

// IntegrationStatuses lists every possible attempt outcome.
var IntegrationStatuses = []IntegrationStatus{
	IntegrationSuccess,
	IntegrationPendingReview,
	IntegrationFailed,
	IntegrationDuplicate,
	IntegrationVoiceMismatch,
}

// IntegrationPreview is a proposed-but-unapplied change to a target document.
type IntegrationPreview struct {
	TargetSection    string   `json:"targetSection"`
	Before           string   `json:"before"`
	After            string   `json:"after"`
	Diff             []string `json:"diff"`
	Warnings         []string `json:"warnings,omitempty"`
	RequiresApproval bool     `json:"requiresApproval"`
}

// IntegrationResult is the outcome of one integration attempt. A retried
// attempt produces a new result; results are never mutated after creation.
type IntegrationResult struct {
	Status         IntegrationStatus   `json:"status"`
	Update         UpdateFile          `json:"update"`
	Mode           IntegrationMode     `json:"mode"`
	Preview        *IntegrationPreview `json:"preview,omitempty"`
	NewContent     string              `json:"newContent,omitempty"`
	Error          string              `json:"error,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
	ChangelogEntry string              `json:"changelogEntry,omitempty"`
}

// DuplicateCheckResult reports the word-overlap duplicate heuristic.
type DuplicateCheckResult struct {
	IsDuplicate bool    `json:"isDuplicate"`
	Similarity  float64 `json:"similarity"`
}

// VoiceValidationResult reports the heuristic voice/style lint. It is a
// style lint, not a voice classifier.
type VoiceValidationResult struct {
	IsValid     bool     `json:"isValid"`
	Confidence  float64  `json:"confidence"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
