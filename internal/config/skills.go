package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// SkillLoader resolves skill identifiers to their on-disk layout and loads
// their configuration. Each skill lives in its own directory:
//
//	<skillsDir>/<skillID>/config.json    per-skill policy
//	<skillsDir>/<skillID>/SKILL.md       the living document
//	<skillsDir>/<skillID>/CHANGELOG.md   best-effort changelog
type SkillLoader interface {
	// Load reads and validates the skill's config.json. The config is loaded
	// fresh per call and treated as read-only.
	Load(skillID string) (*models.SkillConfig, error)

	// DocumentPath returns the path of the skill's living document.
	DocumentPath(skillID string) string

	// ChangelogPath returns the path of the skill's changelog.
	ChangelogPath(skillID string) string

	// List returns the IDs of every skill directory containing a config.
	List() ([]string, error)
}

type fileSkillLoader struct {
	skillsDir string
}

// NewSkillLoader creates a SkillLoader rooted at skillsDir.
func NewSkillLoader(skillsDir string) SkillLoader {
	return &fileSkillLoader{skillsDir: skillsDir}
}

func (l *fileSkillLoader) configPath(skillID string) string {
	return filepath.Join(l.skillsDir, skillID, "config.json")
}

func (l *fileSkillLoader) DocumentPath(skillID string) string {
	return filepath.Join(l.skillsDir, skillID, "SKILL.md")
}

func (l *fileSkillLoader) ChangelogPath(skillID string) string {
	return filepath.Join(l.skillsDir, skillID, "CHANGELOG.md")
}

func (l *fileSkillLoader) Load(skillID string) (*models.SkillConfig, error) {
	if skillID == "" {
		return nil, fmt.Errorf("loading skill config: skill ID is empty")
	}

	path := l.configPath(skillID)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("loading config for skill %s: %w", skillID, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config for skill %s: %w", skillID, err)
	}

	var cfg models.SkillConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config for skill %s: %w", skillID, err)
	}

	if err := validateSkillConfig(&cfg, skillID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *fileSkillLoader) List() ([]string, error) {
	entries, err := os.ReadDir(l.skillsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading skills directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(l.configPath(entry.Name())); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
