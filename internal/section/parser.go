// Package section implements the markdown section parser the integration
// pipeline is built on: header-driven sectioning with line ranges, fuzzy
// section lookup, insertion points, a word-overlap duplicate heuristic,
// {key} template substitution, changelog entry rendering, and a naive
// frontmatter scanner.
package section

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// Section is one named, leveled slice of a document. Sections are
// non-overlapping and together cover every line of the source text.
type Section struct {
	Name      string
	Level     int
	StartLine int
	EndLine   int
	Content   string
}

// InsertPosition selects where inside a section new content goes.
type InsertPosition string

const (
	InsertAtStart InsertPosition = "start"
	InsertAtEnd   InsertPosition = "end"
)

var headerPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// ParseSections scans text line by line for markdown headers (# through
// ######). Each header starts a new section ending on the line before the
// next header, or EOF. Text before the first header becomes an unnamed
// level-zero preamble section so the returned ranges span the whole document.
func ParseSections(text string) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section

	current := Section{Name: "", Level: 0, StartLine: 0}
	started := false

	flush := func(endLine int) {
		current.EndLine = endLine
		current.Content = strings.Join(lines[current.StartLine:endLine+1], "\n")
		sections = append(sections, current)
	}

	for i, line := range lines {
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			started = true
			continue
		}
		if started {
			flush(i - 1)
		}
		current = Section{
			Name:      strings.TrimSpace(m[2]),
			Level:     len(m[1]),
			StartLine: i,
		}
		started = true
	}

	flush(len(lines) - 1)
	return sections
}

// FindSection returns the first section matching query, or nil. Matching is
// case-insensitive: exact name equality first, then substring containment in
// either direction. The fuzziness is deliberate; update authors write loose
// target names and exact matching would fail too often.
func FindSection(sections []Section, query string) *Section {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	for i := range sections {
		if strings.ToLower(sections[i].Name) == q {
			return &sections[i]
		}
	}
	for i := range sections {
		name := strings.ToLower(sections[i].Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return &sections[i]
		}
	}
	return nil
}

// InsertionPoint returns the line index at which new content should be
// spliced into sec: the header line for InsertAtStart, the section's last
// line otherwise. Callers default to InsertAtEnd so new content appends
// rather than replaces.
func InsertionPoint(sec *Section, pos InsertPosition) int {
	if pos == InsertAtStart {
		return sec.StartLine
	}
	return sec.EndLine
}

// templateKeyPattern matches {key} placeholders for ApplyTemplate.
var templateKeyPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_-]*)\}`)

// ApplyTemplate performs literal {key} substitution with no escaping.
// Keys missing from data are left blank.
func ApplyTemplate(template string, data map[string]string) string {
	return templateKeyPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		return data[key]
	})
}

// changelogEmoji maps update types to their fixed changelog prefix.
var changelogEmoji = map[models.UpdateType]string{
	models.UpdateFramework:  "\U0001f527", // 🔧
	models.UpdateExample:    "\U0001f4a1", // 💡
	models.UpdateTemplate:   "\U0001f4cb", // 📋
	models.UpdatePlaybook:   "\U0001f4d6", // 📖
	models.UpdateCorrection: "✏️", // ✏️
	models.UpdateExpansion:  "\U0001f4c8", // 📈
	models.UpdateCaseStudy:  "\U0001f4ca", // 📊
}

// ChangelogEntry renders one markdown bullet line for an integrated update.
func ChangelogEntry(t models.UpdateType, description string, date time.Time) string {
	emoji, ok := changelogEmoji[t]
	if !ok {
		emoji = "\U0001f4dd" // 📝
	}
	return fmt.Sprintf("- %s %s (%s)", emoji, description, date.Format("2006-01-02"))
}

// ExtractFrontmatter parses a leading frontmatter block bounded by ---
// delimiters as flat key: value pairs, returning the pairs and the body after
// the closing delimiter. This is a deliberate simplification versus a full
// YAML parser: no nesting, no lists, no quoting, no type coercion. If no
// frontmatter block is found, the map is empty and the body is the full input.
func ExtractFrontmatter(content string) (map[string]string, string) {
	meta := make(map[string]string)

	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return meta, content
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return meta, content
	}

	for _, line := range lines[1:end] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		meta[key] = strings.TrimSpace(value)
	}

	body := strings.Join(lines[end+1:], "\n")
	body = strings.TrimPrefix(body, "\n")
	return meta, body
}
