package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

func writeSkillConfig(t *testing.T, skillsDir, skillID string, cfg models.SkillConfig) {
	t.Helper()
	dir := filepath.Join(skillsDir, skillID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSkillLoaderLoad(t *testing.T) {
	skillsDir := t.TempDir()
	writeSkillConfig(t, skillsDir, "pricing", models.SkillConfig{
		Version: "2.1",
		Expert:  models.ExpertConfig{Name: "Jordan Reyes", ApprovalRequired: true},
		IntegrationRules: map[models.UpdateType]models.IntegrationRule{
			models.UpdateCorrection: {AutoApprove: true, MaxChanges: 10},
			models.UpdateFramework:  {Template: "### {title}\n\n{content}", RequireReview: true},
		},
		Validation: models.ValidationConfig{
			NoDuplicates:       true,
			VoiceCheck:         true,
			DuplicateThreshold: 0.7,
		},
		Notifications: &models.NotificationsConfig{
			Channels:          []models.NotificationChannel{models.ChannelChat},
			UpdateDetected:    true,
			ApprovalRequested: true,
		},
	})

	loader := NewSkillLoader(skillsDir)
	cfg, err := loader.Load("pricing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != "2.1" {
		t.Errorf("Version = %q, want 2.1", cfg.Version)
	}
	if cfg.Expert.Name != "Jordan Reyes" || !cfg.Expert.ApprovalRequired {
		t.Errorf("Expert = %+v", cfg.Expert)
	}
	rule, ok := cfg.RuleFor(models.UpdateCorrection)
	if !ok {
		t.Fatal("correction rule missing")
	}
	if !rule.AutoApprove || rule.MaxChanges != 10 {
		t.Errorf("correction rule = %+v", rule)
	}
	if got, _ := cfg.RuleFor(models.UpdateFramework); got.Template == "" || !got.RequireReview {
		t.Errorf("framework rule = %+v", got)
	}
	if cfg.DuplicateThreshold() != 0.7 {
		t.Errorf("DuplicateThreshold() = %v, want 0.7", cfg.DuplicateThreshold())
	}
	if cfg.Notifications == nil || len(cfg.Notifications.Channels) != 1 {
		t.Errorf("Notifications = %+v", cfg.Notifications)
	}
}

func TestSkillLoaderLoadMissing(t *testing.T) {
	loader := NewSkillLoader(t.TempDir())
	if _, err := loader.Load("nonexistent"); err == nil {
		t.Error("expected error for missing skill")
	}
}

func TestSkillLoaderLoadEmptyID(t *testing.T) {
	loader := NewSkillLoader(t.TempDir())
	if _, err := loader.Load(""); err == nil {
		t.Error("expected error for empty skill ID")
	}
}

func TestSkillLoaderValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.SkillConfig
	}{
		{
			name: "missing version",
			cfg: models.SkillConfig{
				Expert: models.ExpertConfig{Name: "Jordan Reyes"},
			},
		},
		{
			name: "missing expert name",
			cfg: models.SkillConfig{
				Version: "1.0",
			},
		},
		{
			name: "unknown channel",
			cfg: models.SkillConfig{
				Version: "1.0",
				Expert:  models.ExpertConfig{Name: "Jordan Reyes"},
				Notifications: &models.NotificationsConfig{
					Channels: []models.NotificationChannel{"pager"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skillsDir := t.TempDir()
			writeSkillConfig(t, skillsDir, "broken", tt.cfg)

			loader := NewSkillLoader(skillsDir)
			if _, err := loader.Load("broken"); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSkillLoaderRejectsUnknownRuleType(t *testing.T) {
	skillsDir := t.TempDir()
	dir := filepath.Join(skillsDir, "broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw := `{
  "version": "1.0",
  "expert": {"name": "Jordan Reyes"},
  "integrationRules": {"screenplay": {"autoApprove": true}}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewSkillLoader(skillsDir)
	if _, err := loader.Load("broken"); err == nil {
		t.Error("expected error for unknown update type in rules")
	}
}

func TestSkillLoaderPaths(t *testing.T) {
	loader := NewSkillLoader("/data/skills")
	if got := loader.DocumentPath("pricing"); got != filepath.Join("/data/skills", "pricing", "SKILL.md") {
		t.Errorf("DocumentPath() = %q", got)
	}
	if got := loader.ChangelogPath("pricing"); got != filepath.Join("/data/skills", "pricing", "CHANGELOG.md") {
		t.Errorf("ChangelogPath() = %q", got)
	}
}

func TestSkillLoaderList(t *testing.T) {
	skillsDir := t.TempDir()
	base := models.SkillConfig{
		Version: "1.0",
		Expert:  models.ExpertConfig{Name: "Jordan Reyes"},
	}
	writeSkillConfig(t, skillsDir, "pricing", base)
	writeSkillConfig(t, skillsDir, "negotiation", base)

	// A directory without config.json is not a skill.
	if err := os.MkdirAll(filepath.Join(skillsDir, "drafts"), 0o755); err != nil {
		t.Fatal(err)
	}
	// A stray file is ignored.
	if err := os.WriteFile(filepath.Join(skillsDir, "notes.md"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewSkillLoader(skillsDir)
	ids, err := loader.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("List() = %v, want 2 skills", ids)
	}
}

func TestSkillLoaderListMissingDir(t *testing.T) {
	loader := NewSkillLoader(filepath.Join(t.TempDir(), "absent"))
	ids, err := loader.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if ids != nil {
		t.Errorf("List() = %v, want nil", ids)
	}
}
