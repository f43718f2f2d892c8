// Package archive relocates processed update source files into a
// state-partitioned archive with per-file metadata. Archival correctness
// takes priority over cleanup completeness: writing the copy and its
// metadata may fail hard, while deleting the original is best-effort.
package archive

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

const metaSuffix = ".meta.json"

// Archiver owns post-hoc relocation of update source files. It is invoked by
// the workflow manager only after the queue has recorded a terminal state.
type Archiver interface {
	// Archive copies (not moves) the item's source file into the archive and
	// writes a sibling metadata record.
	Archive(item *models.QueuedUpdate) (*models.ArchiveMetadata, error)

	// ArchiveAndDelete archives then deletes the original. A deletion
	// failure is logged as a warning, never escalated.
	ArchiveAndDelete(item *models.QueuedUpdate) (*models.ArchiveMetadata, error)

	// Stats summarizes archive contents by state bucket and skill.
	Stats() (*models.ArchiveStats, error)

	// ArchivedFiles lists archived copies with their metadata, optionally
	// filtered by state bucket.
	ArchivedFiles(bucket string) ([]models.ArchivedFile, error)

	// Cleanup deletes archived copies and their metadata once past the age
	// threshold. Entries with unreadable or missing metadata are skipped;
	// nothing is ever deleted without provenance.
	Cleanup(olderThanDays int) (int, error)
}

type fileArchiver struct {
	dir string
	log observability.EventLog
}

// New creates an Archiver rooted at dir.
func New(dir string, log observability.EventLog) Archiver {
	return &fileArchiver{dir: dir, log: log}
}

// stateBucket partitions archived files by how their lifecycle ended.
func stateBucket(state models.WorkflowState) string {
	switch state {
	case models.StateIntegrated, models.StateRejected, models.StateFailed:
		return string(state)
	default:
		return "other"
	}
}

func (a *fileArchiver) Archive(item *models.QueuedUpdate) (*models.ArchiveMetadata, error) {
	bucket := stateBucket(item.State)
	targetDir := filepath.Join(a.dir, bucket, item.Update.SkillID)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	data, err := os.ReadFile(item.Update.Path)
	if err != nil {
		return nil, fmt.Errorf("reading update source %s: %w", item.Update.Path, err)
	}

	// Timestamp prefix avoids collisions between same-named updates.
	name := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), item.Update.Name)
	archivedPath := filepath.Join(targetDir, name)
	if err := os.WriteFile(archivedPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing archived copy: %w", err)
	}

	meta := &models.ArchiveMetadata{
		OriginalPath: item.Update.Path,
		ArchivedPath: archivedPath,
		ArchivedAt:   time.Now(),
		SkillID:      item.Update.SkillID,
		State:        item.State,
		Result:       item.Result,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling archive metadata: %w", err)
	}
	if err := os.WriteFile(archivedPath+metaSuffix, metaBytes, 0o644); err != nil {
		return nil, fmt.Errorf("writing archive metadata: %w", err)
	}

	observability.Info(a.log, observability.EventArchiveWritten, "update archived",
		map[string]any{"queueId": item.ID, "bucket": bucket, "path": archivedPath})
	return meta, nil
}

func (a *fileArchiver) ArchiveAndDelete(item *models.QueuedUpdate) (*models.ArchiveMetadata, error) {
	meta, err := a.Archive(item)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(item.Update.Path); err != nil {
		observability.Warn(a.log, observability.EventArchiveWritten,
			"archived copy written but original could not be deleted",
			map[string]any{"queueId": item.ID, "path": item.Update.Path, "error": err.Error()})
	}
	return meta, nil
}

// walkMeta visits every metadata record under the archive root.
func (a *fileArchiver) walkMeta(fn func(metaPath string, meta models.ArchiveMetadata) error) error {
	err := filepath.WalkDir(a.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var meta models.ArchiveMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil
		}
		return fn(path, meta)
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("walking archive: %w", err)
	}
	return nil
}

func (a *fileArchiver) Stats() (*models.ArchiveStats, error) {
	stats := &models.ArchiveStats{
		ByState: make(map[string]int),
		BySkill: make(map[string]int),
	}
	err := a.walkMeta(func(_ string, meta models.ArchiveMetadata) error {
		stats.Total++
		stats.ByState[stateBucket(meta.State)]++
		stats.BySkill[meta.SkillID]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *fileArchiver) ArchivedFiles(bucket string) ([]models.ArchivedFile, error) {
	var files []models.ArchivedFile
	err := a.walkMeta(func(_ string, meta models.ArchiveMetadata) error {
		if bucket != "" && stateBucket(meta.State) != bucket {
			return nil
		}
		files = append(files, models.ArchivedFile{Path: meta.ArchivedPath, Meta: meta})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (a *fileArchiver) Cleanup(olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	removed := 0

	var stale []string
	err := a.walkMeta(func(metaPath string, meta models.ArchiveMetadata) error {
		if meta.ArchivedAt.Before(cutoff) {
			stale = append(stale, metaPath)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, metaPath := range stale {
		copyPath := strings.TrimSuffix(metaPath, metaSuffix)
		if err := os.Remove(copyPath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing archived copy %s: %w", copyPath, err)
		}
		if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing archive metadata %s: %w", metaPath, err)
		}
		removed++
	}

	if removed > 0 {
		observability.Info(a.log, observability.EventArchiveCleanup,
			fmt.Sprintf("removed %d archived updates", removed), nil)
	}
	return removed, nil
}
