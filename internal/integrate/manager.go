package integrate

import (
	"fmt"
	"os"

	"github.com/mhalvorsen/skillsync/internal/config"
	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// Manager resolves an update's skill configuration and target document,
// selects the integration mode, and runs the matching integrator. It is the
// single entry point the workflow layer calls for integration work.
type Manager struct {
	skills config.SkillLoader
	rules  *RulesIntegrator
	log    observability.EventLog
	// dupThreshold is the engine-wide duplicate threshold, used for skills
	// whose own config leaves the threshold unset.
	dupThreshold float64
}

// NewManager creates a Manager over the given skill loader. dupThreshold is
// the engine-level duplicate threshold; zero leaves each skill on its own
// configured or default value.
func NewManager(skills config.SkillLoader, log observability.EventLog, dupThreshold float64) *Manager {
	return &Manager{
		skills:       skills,
		rules:        NewRulesIntegrator(log),
		log:          log,
		dupThreshold: dupThreshold,
	}
}

// ProcessUpdate integrates one update. Resolution failures (missing skill,
// unreadable document) come back as failed results, not errors; callers get
// an error only when the update itself is unusable.
func (m *Manager) ProcessUpdate(update models.UpdateFile, opts Options) (*models.IntegrationResult, error) {
	if update.SkillID == "" {
		return nil, fmt.Errorf("processing update %s: no skill ID", update.Name)
	}

	ctx, err := m.buildContext(update)
	if err != nil {
		return &models.IntegrationResult{
			Status: models.IntegrationFailed,
			Update: update,
			Mode:   models.ModeRules,
			Error:  err.Error(),
		}, nil
	}

	mode := determineMode(update, ctx.Config)
	if mode == models.ModeAIPowered {
		// AI-powered integration is not wired to a provider; fall back to
		// rules so these updates still land deterministically.
		observability.Info(m.log, observability.EventIntegration,
			"ai-powered mode unavailable, falling back to rules",
			map[string]any{"update": update.Name, "type": string(update.Metadata.Type)})
		mode = models.ModeRules
	}

	result := m.rules.Integrate(ctx, opts)
	result.Mode = mode
	return result, nil
}

// ProcessBatch integrates updates sequentially, stopping at the first hard
// failure. Duplicate, voice-mismatch and pending-review outcomes do not stop
// the batch; they are per-update judgements, not pipeline faults.
func (m *Manager) ProcessBatch(updates []models.UpdateFile, opts Options) ([]*models.IntegrationResult, error) {
	var results []*models.IntegrationResult
	for _, update := range updates {
		result, err := m.ProcessUpdate(update, opts)
		if err != nil {
			return results, fmt.Errorf("batch stopped at %s: %w", update.Name, err)
		}
		results = append(results, result)
		if result.Status == models.IntegrationFailed && !opts.DryRun {
			return results, fmt.Errorf("batch stopped at %s: %s", update.Name, result.Error)
		}
	}
	return results, nil
}

// PreviewUpdate builds the proposed change without applying anything.
func (m *Manager) PreviewUpdate(update models.UpdateFile) (*models.IntegrationPreview, error) {
	ctx, err := m.buildContext(update)
	if err != nil {
		return nil, err
	}
	return m.rules.Preview(ctx)
}

func (m *Manager) buildContext(update models.UpdateFile) (*Context, error) {
	cfg, err := m.skills.Load(update.SkillID)
	if err != nil {
		return nil, err
	}

	docPath := m.skills.DocumentPath(update.SkillID)
	doc, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("reading document for skill %s: %w", update.SkillID, err)
	}

	ctx := &Context{
		Update:        update,
		Config:        cfg,
		DocumentPath:  docPath,
		Document:      string(doc),
		ChangelogPath: m.skills.ChangelogPath(update.SkillID),
	}
	// A skill that pins its own threshold wins over the engine-wide one.
	if cfg.Validation.DuplicateThreshold <= 0 {
		ctx.DuplicateThreshold = m.dupThreshold
	}
	return ctx, nil
}

// determineMode picks the integration mode for an update. Corrections and
// template drops are mechanical, so always rules; the content-heavy types
// prefer AI assistance when a provider is configured.
func determineMode(update models.UpdateFile, cfg *models.SkillConfig) models.IntegrationMode {
	switch update.Metadata.Type {
	case models.UpdateCorrection, models.UpdateTemplate:
		return models.ModeRules
	case models.UpdateFramework, models.UpdateExpansion, models.UpdateCaseStudy:
		return models.ModeAIPowered
	default:
		return models.ModeRules
	}
}
