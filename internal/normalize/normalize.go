// Package normalize trims arbitrary input text to a provider budget
// before it is sent to any upstream model.
package normalize

import (
	"strings"
	"unicode"

	"github.com/arxivmind/arxivmind/pkg/models"
)

// DefaultBudget is the character budget applied when none is configured.
// Roughly 8K tokens at the usual 4-chars-per-token estimate.
const DefaultBudget = 32_000

// boundaryWindow is how far back from the cut point we look for a
// sentence or whitespace boundary before giving up and cutting hard.
const boundaryWindow = 500

// Normalize truncates text to at most budget runes. Never fails: empty
// input yields empty output, and text already within budget is returned
// unchanged. When cutting, it prefers the nearest sentence end, then the
// nearest whitespace, inside the boundary window.
func Normalize(text string, budget int) models.NormalizedContent {
	if budget < 0 {
		budget = 0
	}

	runes := []rune(text)
	if len(runes) <= budget {
		return models.NormalizedContent{
			Text:           text,
			OriginalLength: len(runes),
			Truncated:      false,
		}
	}

	cut := budget
	window := boundaryWindow
	if window > budget {
		window = budget
	}

	if at := lastSentenceEnd(runes[:budget], window); at > 0 {
		cut = at
	} else if at := lastWhitespace(runes[:budget], window); at > 0 {
		cut = at
	}

	return models.NormalizedContent{
		Text:           strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace),
		OriginalLength: len(runes),
		Truncated:      true,
	}
}

// lastSentenceEnd returns the index just past the last sentence
// terminator within the trailing window, or 0 if none.
func lastSentenceEnd(runes []rune, window int) int {
	stop := len(runes) - window
	for i := len(runes) - 1; i >= stop && i >= 0; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return 0
}

// lastWhitespace returns the index of the last whitespace rune within
// the trailing window, or 0 if none.
func lastWhitespace(runes []rune, window int) int {
	stop := len(runes) - window
	for i := len(runes) - 1; i >= stop && i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return 0
}
