package integrate

import (
	"fmt"
	"os"
	"strings"
)

const changelogSeed = `# Changelog

## [Unreleased]

### Added
`

// appendChangelog inserts one bullet under the "### Added" heading of the
// "## [Unreleased]" block, creating the file or the block when absent.
// Keep-a-changelog layout is assumed but not enforced.
func appendChangelog(path, entry string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading changelog: %w", err)
		}
		data = []byte(changelogSeed)
	}

	content := string(data)
	lines := strings.Split(content, "\n")

	unreleased := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "## [Unreleased]") {
			unreleased = i
			break
		}
	}
	if unreleased == -1 {
		block := "## [Unreleased]\n\n### Added\n" + entry + "\n\n"
		content = block + content
		return writeChangelog(path, content)
	}

	// Look for "### Added" inside the unreleased block, stopping at the next
	// release heading.
	added := -1
	blockEnd := len(lines)
	for i := unreleased + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "## ") {
			blockEnd = i
			break
		}
		if trimmed == "### Added" {
			added = i
		}
	}

	var out []string
	if added == -1 {
		out = append(out, lines[:unreleased+1]...)
		out = append(out, "", "### Added", entry)
		out = append(out, lines[unreleased+1:]...)
	} else {
		// Insert after the last bullet already under "### Added".
		insertAt := added
		for i := added + 1; i < blockEnd; i++ {
			trimmed := strings.TrimSpace(lines[i])
			if strings.HasPrefix(trimmed, "- ") {
				insertAt = i
				continue
			}
			if trimmed == "" {
				continue
			}
			break
		}
		out = append(out, lines[:insertAt+1]...)
		out = append(out, entry)
		out = append(out, lines[insertAt+1:]...)
	}

	return writeChangelog(path, strings.Join(out, "\n"))
}

func writeChangelog(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing changelog: %w", err)
	}
	return nil
}
