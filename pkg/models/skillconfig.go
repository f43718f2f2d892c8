package models

// IntegrationRule is the per-update-type policy inside a SkillConfig.
type IntegrationRule struct {
	// Template, when set, renders the update through {key} substitution
	// instead of a plain append.
	Template string `json:"template,omitempty" mapstructure:"template"`
	// AutoApprove skips the approval gate for this update type.
	AutoApprove bool `json:"autoApprove,omitempty" mapstructure:"autoApprove"`
	// MaxChanges caps the update's line count for auto-approval; zero means
	// no cap.
	MaxChanges int `json:"maxChanges,omitempty" mapstructure:"maxChanges"`
	// RequireReview overrides AutoApprove and forces a human review.
	RequireReview bool `json:"requireReview,omitempty" mapstructure:"requireReview"`
}

// ExpertConfig identifies the skill owner and their approval policy.
type ExpertConfig struct {
	Name             string `json:"name" mapstructure:"name"`
	ApprovalRequired bool   `json:"approvalRequired" mapstructure:"approvalRequired"`
	AutoPublish      bool   `json:"autoPublish" mapstructure:"autoPublish"`
}

// ValidationConfig toggles the content checks run before integration.
type ValidationConfig struct {
	NoDuplicates      bool    `json:"noDuplicates" mapstructure:"noDuplicates"`
	VoiceCheck        bool    `json:"voiceCheck" mapstructure:"voiceCheck"`
	PreserveStructure bool    `json:"preserveStructure" mapstructure:"preserveStructure"`
	// DuplicateThreshold is the word-overlap ratio at or above which a
	// candidate counts as a duplicate. Zero falls back to 0.8.
	DuplicateThreshold float64 `json:"duplicateThreshold,omitempty" mapstructure:"duplicateThreshold"`
}

// VoiceProfile describes the stylistic profile updates are expected to match.
type VoiceProfile struct {
	Tone   string   `json:"tone,omitempty" mapstructure:"tone"`
	Avoid  []string `json:"avoid,omitempty" mapstructure:"avoid"`
	Prefer []string `json:"prefer,omitempty" mapstructure:"prefer"`
}

// NotificationsConfig selects delivery channels and which lifecycle events
// notify the expert. A disabled event type, or an empty channel list, makes
// the corresponding notification a no-op.
type NotificationsConfig struct {
	Channels          []NotificationChannel `json:"channels" mapstructure:"channels"`
	Recipient         string                `json:"recipient,omitempty" mapstructure:"recipient"`
	UpdateDetected    bool                  `json:"updateDetected" mapstructure:"updateDetected"`
	ApprovalRequested bool                  `json:"approvalRequested" mapstructure:"approvalRequested"`
	UpdatePublished   bool                  `json:"updatePublished" mapstructure:"updatePublished"`
	IntegrationFailed bool                  `json:"integrationFailed" mapstructure:"integrationFailed"`
}

// ResearchConfig is the optional automated-ingestion policy for a skill.
type ResearchConfig struct {
	Enabled   bool     `json:"enabled" mapstructure:"enabled"`
	Sources   []string `json:"sources,omitempty" mapstructure:"sources"`
	MaxPerDay int      `json:"maxPerDay,omitempty" mapstructure:"maxPerDay"`
}

// SkillConfig is the per-target-document policy, loaded fresh for every
// update and treated as read-only configuration.
type SkillConfig struct {
	Version          string                         `json:"version" mapstructure:"version"`
	Expert           ExpertConfig                   `json:"expert" mapstructure:"expert"`
	IntegrationRules map[UpdateType]IntegrationRule `json:"integrationRules,omitempty" mapstructure:"integrationRules"`
	Validation       ValidationConfig               `json:"validation" mapstructure:"validation"`
	Voice            *VoiceProfile                  `json:"voice,omitempty" mapstructure:"voice"`
	Notifications    *NotificationsConfig           `json:"notifications,omitempty" mapstructure:"notifications"`
	Research         *ResearchConfig                `json:"research,omitempty" mapstructure:"research"`
}

// RuleFor returns the integration rule for the given update type, if any.
func (c *SkillConfig) RuleFor(t UpdateType) (IntegrationRule, bool) {
	if c == nil || c.IntegrationRules == nil {
		return IntegrationRule{}, false
	}
	rule, ok := c.IntegrationRules[t]
	return rule, ok
}

// DuplicateThreshold returns the configured duplicate threshold, falling back
// to the documented default of 0.8.
func (c *SkillConfig) DuplicateThreshold() float64 {
	if c == nil || c.Validation.DuplicateThreshold <= 0 {
		return 0.8
	}
	return c.Validation.DuplicateThreshold
}
