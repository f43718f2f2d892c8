// Package integrate merges updates into their target living documents. The
// RulesIntegrator proposes and applies deterministic template/append-driven
// changes; the Manager resolves per-update configuration, picks a mode, and
// converts every error on the path into a typed result so callers above it
// never see a raw error in the common path.
package integrate

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/internal/section"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

// Context carries everything one integration attempt needs: the update, the
// skill's policy, and the target document as read from disk.
type Context struct {
	Update        models.UpdateFile
	Config        *models.SkillConfig
	DocumentPath  string
	Document      string
	ChangelogPath string
	// DuplicateThreshold overrides the skill config's fallback chain when
	// set; zero defers to the config.
	DuplicateThreshold float64
}

// duplicateThreshold resolves the similarity cutoff for this attempt.
func (c *Context) duplicateThreshold() float64 {
	if c.DuplicateThreshold > 0 {
		return c.DuplicateThreshold
	}
	return c.Config.DuplicateThreshold()
}

// Options tune one integration attempt.
type Options struct {
	// DryRun previews without writing anything.
	DryRun bool
	// SkipDuplicateCheck bypasses duplicate detection.
	SkipDuplicateCheck bool
	// SkipVoiceCheck bypasses the voice lint.
	SkipVoiceCheck bool
	// ForceApproval routes the attempt to pending-review even when the
	// skill's policy would not require it.
	ForceApproval bool
	// ApprovalGranted marks that a human already authorized this attempt,
	// bypassing the approval gate.
	ApprovalGranted bool
}

// RulesIntegrator implements the deterministic rules-based integration mode.
type RulesIntegrator struct {
	log observability.EventLog
}

// NewRulesIntegrator creates a RulesIntegrator.
func NewRulesIntegrator(log observability.EventLog) *RulesIntegrator {
	return &RulesIntegrator{log: log}
}

// Preview locates the target section and builds the proposed-but-unapplied
// change: spliced text, diff, warnings, and whether approval is required.
func (r *RulesIntegrator) Preview(ctx *Context) (*models.IntegrationPreview, error) {
	sections := section.ParseSections(ctx.Document)
	target := section.FindSection(sections, ctx.Update.Metadata.TargetSection)
	if target == nil {
		return nil, fmt.Errorf("target section %q not found", ctx.Update.Metadata.TargetSection)
	}

	var warnings []string
	rule, hasRule := ctx.Config.RuleFor(ctx.Update.Metadata.Type)
	insertText := r.renderInsert(ctx.Update, rule, hasRule)
	if !hasRule {
		warnings = append(warnings, fmt.Sprintf("no integration rule for type %q; using plain append", ctx.Update.Metadata.Type))
	}

	after := target.Content + insertText
	diff := buildDiff(target.Content, insertionLines(insertText))

	return &models.IntegrationPreview{
		TargetSection:    target.Name,
		Before:           target.Content,
		After:            after,
		Diff:             diff,
		Warnings:         warnings,
		RequiresApproval: requiresApproval(ctx.Config, rule, hasRule, ctx.Update.Content),
	}, nil
}

// renderInsert produces the text spliced at the end of the target section:
// the rule's template when one exists, otherwise a plain two-newline append
// of the raw update content.
func (r *RulesIntegrator) renderInsert(update models.UpdateFile, rule models.IntegrationRule, hasRule bool) string {
	if !hasRule || rule.Template == "" {
		return "\n\n" + update.Content
	}
	rendered := section.ApplyTemplate(rule.Template, map[string]string{
		"title":         deriveTitle(update.Content),
		"content":       update.Content,
		"type":          string(update.Metadata.Type),
		"category":      update.Metadata.Category,
		"priority":      string(update.Metadata.Priority),
		"targetSection": update.Metadata.TargetSection,
		"status":        string(update.Metadata.Status),
		"author":        update.Metadata.Author,
		"dateAdded":     update.Metadata.DateAdded,
		"tags":          strings.Join(update.Metadata.Tags, ", "),
	})
	return "\n\n" + rendered
}

// insertionLines converts renderInsert's output into the lines spliced after
// the section's last line. The leading newline terminates that last line and
// must not become a line of its own, so only the separator's blank line and
// the content remain.
func insertionLines(insertText string) []string {
	return strings.Split(strings.TrimPrefix(insertText, "\n"), "\n")
}

// deriveTitle takes the first line when it is a header, otherwise the first
// 60 characters with an ellipsis.
func deriveTitle(content string) string {
	trimmed := strings.TrimSpace(content)
	firstLine, _, _ := strings.Cut(trimmed, "\n")
	if strings.HasPrefix(firstLine, "#") {
		return strings.TrimSpace(strings.TrimLeft(firstLine, "# "))
	}
	runes := []rune(trimmed)
	if len(runes) <= 60 {
		return trimmed
	}
	return string(runes[:60]) + "..."
}

// buildDiff renders a unified-style insert-only diff: the section's existing
// lines as context (space-prefixed), the inserted lines plus-prefixed.
func buildDiff(before string, insertLines []string) []string {
	var diff []string
	for _, line := range strings.Split(before, "\n") {
		diff = append(diff, " "+line)
	}
	for _, line := range insertLines {
		diff = append(diff, "+"+line)
	}
	return diff
}

// requiresApproval implements the approval gate. Experts that disabled
// approval never gate; auto-approve rules skip the gate when the update's
// line count is within the rule's cap, unless the rule forces review.
func requiresApproval(cfg *models.SkillConfig, rule models.IntegrationRule, hasRule bool, content string) bool {
	if cfg != nil && !cfg.Expert.ApprovalRequired {
		return false
	}
	if hasRule && rule.AutoApprove {
		lineCount := len(strings.Split(content, "\n"))
		if rule.MaxChanges == 0 || lineCount <= rule.MaxChanges {
			return rule.RequireReview
		}
	}
	return true
}

// Integrate runs the full rules pipeline: duplicate check, voice lint,
// preview, approval gate, splice, write, changelog. Every failure on this
// path is reported as a failed result, never propagated as an error.
func (r *RulesIntegrator) Integrate(ctx *Context, opts Options) *models.IntegrationResult {
	result := &models.IntegrationResult{
		Update: ctx.Update,
		Mode:   models.ModeRules,
	}

	if !opts.SkipDuplicateCheck && ctx.Config.Validation.NoDuplicates {
		dup := r.CheckDuplicate(ctx.Update.Content, ctx.Document, ctx.duplicateThreshold())
		if dup.IsDuplicate {
			result.Status = models.IntegrationDuplicate
			result.Error = fmt.Sprintf("update duplicates existing content (%.0f%% of words already present)", dup.Similarity*100)
			return result
		}
	}

	if !opts.SkipVoiceCheck && ctx.Config.Validation.VoiceCheck {
		voice := r.ValidateVoice(ctx.Update.Content, ctx.Config.Voice)
		if !voice.IsValid && voice.Confidence < 0.7 {
			result.Status = models.IntegrationVoiceMismatch
			result.Error = fmt.Sprintf("voice validation failed: %s", strings.Join(voice.Issues, "; "))
			return result
		}
	}

	preview, err := r.Preview(ctx)
	if err != nil {
		result.Status = models.IntegrationFailed
		result.Error = err.Error()
		return result
	}
	result.Preview = preview
	result.Warnings = append(result.Warnings, preview.Warnings...)

	needsApproval := (preview.RequiresApproval || opts.ForceApproval) && !opts.ApprovalGranted
	if needsApproval && !opts.DryRun {
		result.Status = models.IntegrationPendingReview
		return result
	}

	if opts.DryRun {
		result.Status = models.IntegrationSuccess
		result.Warnings = append(result.Warnings, "dry run: no changes were made")
		return result
	}

	newContent, err := r.splice(ctx, preview)
	if err != nil {
		result.Status = models.IntegrationFailed
		result.Error = err.Error()
		return result
	}
	result.NewContent = newContent

	entry := section.ChangelogEntry(ctx.Update.Metadata.Type, deriveTitle(ctx.Update.Content), time.Now())
	result.ChangelogEntry = entry
	if err := appendChangelog(ctx.ChangelogPath, entry); err != nil {
		// Best-effort: a changelog failure never fails the integration.
		result.Warnings = append(result.Warnings, fmt.Sprintf("changelog not updated: %v", err))
		observability.Warn(r.log, observability.EventChangelogFailed, err.Error(),
			map[string]any{"skill": ctx.Update.SkillID})
	}

	result.Status = models.IntegrationSuccess
	return result
}

// splice re-reads the document, verifies it is unchanged since the preview,
// inserts the proposed lines at the end of the target section, and writes
// the whole document back in one overwrite.
func (r *RulesIntegrator) splice(ctx *Context, preview *models.IntegrationPreview) (string, error) {
	current, err := os.ReadFile(ctx.DocumentPath)
	if err != nil {
		return "", fmt.Errorf("re-reading document: %w", err)
	}
	if string(current) != ctx.Document {
		return "", fmt.Errorf("document %s changed during integration", ctx.DocumentPath)
	}

	sections := section.ParseSections(ctx.Document)
	target := section.FindSection(sections, ctx.Update.Metadata.TargetSection)
	if target == nil {
		return "", fmt.Errorf("target section %q disappeared", ctx.Update.Metadata.TargetSection)
	}

	insertText := strings.TrimPrefix(preview.After, target.Content)
	insertAt := section.InsertionPoint(target, section.InsertAtEnd)

	lines := strings.Split(ctx.Document, "\n")
	var out []string
	out = append(out, lines[:insertAt+1]...)
	out = append(out, insertionLines(insertText)...)
	out = append(out, lines[insertAt+1:]...)
	newContent := strings.Join(out, "\n")

	if err := os.WriteFile(ctx.DocumentPath, []byte(newContent), 0o644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return newContent, nil
}

// CheckDuplicate runs the word-overlap duplicate heuristic.
func (r *RulesIntegrator) CheckDuplicate(text, document string, threshold float64) models.DuplicateCheckResult {
	return section.CheckDuplicateContent(document, text, threshold)
}

// ValidateVoice is a heuristic style lint, not a voice classifier: it flags
// excessive capitalization and too-short content. Confidence is 0.9 with no
// issues, 0.5 otherwise.
func (r *RulesIntegrator) ValidateVoice(text string, profile *models.VoiceProfile) models.VoiceValidationResult {
	var issues, suggestions []string

	letters, uppers := 0, 0
	for _, c := range text {
		if unicode.IsLetter(c) {
			letters++
			if unicode.IsUpper(c) {
				uppers++
			}
		}
	}
	if letters > 0 && float64(uppers)/float64(letters) > 0.3 {
		issues = append(issues, "excessive use of capital letters")
		suggestions = append(suggestions, "rewrite shouted passages in sentence case")
	}
	if len(text) < 50 {
		issues = append(issues, "content too short to assess voice")
		suggestions = append(suggestions, "expand the update with more context")
	}

	confidence := 0.9
	if len(issues) > 0 {
		confidence = 0.5
	}
	return models.VoiceValidationResult{
		IsValid:     len(issues) == 0,
		Confidence:  confidence,
		Issues:      issues,
		Suggestions: suggestions,
	}
}
