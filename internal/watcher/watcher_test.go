package watcher

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

const validUpdate = `---
type: correction
priority: high
targetSection: Common Mistakes
applyTo: pricing-strategy, sales-playbook
author: jordan
tags: pricing, anchoring
---
Never anchor on the hourly rate during the first conversation.
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseUpdateFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fix-anchor.md", validUpdate)

	update, err := ParseUpdateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if update.Metadata.Type != models.UpdateCorrection {
		t.Fatalf("type = %s", update.Metadata.Type)
	}
	if update.Metadata.Priority != models.PriorityHigh {
		t.Fatalf("priority = %s", update.Metadata.Priority)
	}
	if update.SkillID != "pricing-strategy" {
		t.Fatalf("skill = %s", update.SkillID)
	}
	if want := []string{"pricing-strategy", "sales-playbook"}; !reflect.DeepEqual(update.Metadata.ApplyTo, want) {
		t.Fatalf("applyTo = %v", update.Metadata.ApplyTo)
	}
	if want := []string{"pricing", "anchoring"}; !reflect.DeepEqual(update.Metadata.Tags, want) {
		t.Fatalf("tags = %v", update.Metadata.Tags)
	}
	if update.Content != "Never anchor on the hourly rate during the first conversation." {
		t.Fatalf("content = %q", update.Content)
	}
	if update.Name != "fix-anchor.md" {
		t.Fatalf("name = %q", update.Name)
	}
}

func TestParseUpdateFileDefaultsPriority(t *testing.T) {
	content := `---
type: example
targetSection: Overview
applyTo: pricing-strategy
---
body
`
	path := writeFile(t, t.TempDir(), "example.md", content)
	update, err := ParseUpdateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if update.Metadata.Priority != models.PriorityMedium {
		t.Fatalf("priority = %s", update.Metadata.Priority)
	}
}

func TestParseUpdateFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "just a body\n"},
		{"bad type", "---\ntype: nonsense\npriority: low\ntargetSection: X\napplyTo: s\n---\nbody"},
		{"bad priority", "---\ntype: example\npriority: urgent\ntargetSection: X\napplyTo: s\n---\nbody"},
		{"no target section", "---\ntype: example\npriority: low\napplyTo: s\n---\nbody"},
		{"no applyTo", "---\ntype: example\npriority: low\ntargetSection: X\n---\nbody"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.md", tc.content)
			if _, err := ParseUpdateFile(path); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestScanIngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.md", validUpdate)
	writeFile(t, dir, "two.md", validUpdate)
	writeFile(t, dir, "skipped.txt", "not markdown")
	writeFile(t, dir, ".hidden.md", validUpdate)
	writeFile(t, dir, "broken.md", "no frontmatter here")

	var mu sync.Mutex
	var seen []string
	w := New(dir, func(update models.UpdateFile) {
		mu.Lock()
		seen = append(seen, update.Name)
		mu.Unlock()
	}, observability.Nop())

	if err := w.Scan(); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("ingested %v, want exactly one.md and two.md", seen)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), func(models.UpdateFile) {
		t.Fatal("handler must not fire")
	}, observability.Nop())
	if err := w.Scan(); err != nil {
		t.Fatal(err)
	}
}

func TestDebounceCollapsesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "burst.md", validUpdate)

	var mu sync.Mutex
	count := 0
	w := New(dir, func(models.UpdateFile) {
		mu.Lock()
		count++
		mu.Unlock()
	}, observability.Nop())

	for i := 0; i < 5; i++ {
		w.debounce(path)
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		c := count
		mu.Unlock()
		if c > 0 {
			if c != 1 {
				t.Fatalf("handler fired %d times", c)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("handler never fired")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
