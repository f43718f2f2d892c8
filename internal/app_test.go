package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

func TestResolveBasePath_HomeEnvSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("SKILLSYNC_HOME", tmpDir)

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "skills", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, ".skillsync.yaml")
	if err := os.WriteFile(configPath, []byte("auto_archive: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(subDir); err != nil {
		t.Fatal(err)
	}

	os.Unsetenv("SKILLSYNC_HOME")

	got := ResolveBasePath()
	// Resolve symlinks so macOS /var vs /private/var temp dirs compare equal.
	want, _ := filepath.EvalSymlinks(tmpDir)
	resolved, _ := filepath.EvalSymlinks(got)
	if resolved != want {
		t.Errorf("ResolveBasePath() = %q, want %q (should find .skillsync.yaml in parent)", got, tmpDir)
	}
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	os.Unsetenv("SKILLSYNC_HOME")

	got := ResolveBasePath()
	want, _ := filepath.EvalSymlinks(tmpDir)
	resolved, _ := filepath.EvalSymlinks(got)
	if resolved != want {
		t.Errorf("ResolveBasePath() = %q, want %q (should fall back to cwd)", got, tmpDir)
	}
}

func TestNewApp_Success(t *testing.T) {
	tmpDir := t.TempDir()
	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer func() { _ = app.Close() }()

	if app.BasePath != tmpDir {
		t.Errorf("app.BasePath = %q, want %q", app.BasePath, tmpDir)
	}
	if app.Queue == nil {
		t.Error("app.Queue is nil")
	}
	if app.Workflow == nil {
		t.Error("app.Workflow is nil")
	}
	if app.Integrations == nil {
		t.Error("app.Integrations is nil")
	}
	if app.Archiver == nil {
		t.Error("app.Archiver is nil")
	}
}

func TestNewApp_MissingConfig(t *testing.T) {
	// NewApp uses defaults when .skillsync.yaml is missing.
	tmpDir := t.TempDir()
	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app.Close() }()

	if app.Cfg.SkillsDir != filepath.Join(tmpDir, "skills") {
		t.Errorf("SkillsDir = %q, want default under base path", app.Cfg.SkillsDir)
	}
	if !app.Cfg.AutoArchive {
		t.Error("AutoArchive should default to true")
	}
}

func TestNewApp_BadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".skillsync.yaml")
	if err := os.WriteFile(configPath, []byte("duplicate_threshold: 3.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewApp(tmpDir); err == nil {
		t.Error("expected error for out-of-range duplicate_threshold")
	}
}

func TestNewApp_EndToEndProcess(t *testing.T) {
	// A full pass through the wired services: write a skill, process an
	// update, and verify the document changed.
	tmpDir := t.TempDir()
	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app.Close() }()

	skillDir := filepath.Join(app.Cfg.SkillsDir, "negotiation")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := models.SkillConfig{
		Version: "1.0",
		Expert:  models.ExpertConfig{Name: "Sam Okafor", ApprovalRequired: false},
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "config.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	document := "# Negotiation\n\n## Anchoring\n\nState your number first when you have good information.\n"
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(document), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(app.Cfg.InboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sourcePath := filepath.Join(app.Cfg.InboxDir, "anchoring-tip.md")
	content := "Research the counterparty's constraints before choosing an anchor value."
	if err := os.WriteFile(sourcePath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	update := models.UpdateFile{
		Name:    "anchoring-tip.md",
		Path:    sourcePath,
		SkillID: "negotiation",
		Metadata: models.UpdateMetadata{
			Type:          models.UpdateCorrection,
			Priority:      models.PriorityMedium,
			TargetSection: "Anchoring",
			ApplyTo:       []string{"negotiation"},
		},
		Content: content,
	}

	item, err := app.Workflow.ProcessUpdate(update)
	if err != nil {
		t.Fatalf("ProcessUpdate() error = %v", err)
	}
	if item.State != models.StateArchived {
		t.Errorf("state = %v, want %v", item.State, models.StateArchived)
	}

	got, err := os.ReadFile(filepath.Join(skillDir, "SKILL.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) == document {
		t.Error("document was not updated")
	}
}
