package section

import (
	"strings"
	"unicode"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

// DefaultDuplicateThreshold is the word-overlap ratio at or above which a
// candidate counts as a duplicate when no threshold is configured.
const DefaultDuplicateThreshold = 0.8

// CheckDuplicateContent compares candidate against document using a
// word-overlap heuristic. Both texts are normalized (lowercased, punctuation
// stripped, whitespace collapsed). Exact substring containment yields
// similarity 1.0; otherwise similarity is the fraction of the candidate's
// words found in the document, flagged as duplicate at or above threshold.
//
// This is a heuristic, not semantic similarity: paraphrases slip through, and
// short candidates that happen to be contained score 1.0 trivially.
func CheckDuplicateContent(document, candidate string, threshold float64) models.DuplicateCheckResult {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}

	doc := normalizeText(document)
	cand := normalizeText(candidate)

	if cand == "" {
		return models.DuplicateCheckResult{IsDuplicate: false, Similarity: 0}
	}

	if strings.Contains(doc, cand) {
		return models.DuplicateCheckResult{IsDuplicate: true, Similarity: 1.0}
	}

	docWords := make(map[string]bool)
	for _, w := range strings.Fields(doc) {
		docWords[w] = true
	}

	candWords := strings.Fields(cand)
	matched := 0
	for _, w := range candWords {
		if docWords[w] {
			matched++
		}
	}

	similarity := float64(matched) / float64(len(candWords))
	return models.DuplicateCheckResult{
		IsDuplicate: similarity >= threshold,
		Similarity:  similarity,
	}
}

// normalizeText lowercases s, strips everything but letters, digits and
// spaces, and collapses runs of whitespace to single spaces.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
