package analyze

import "strings"

// Section keys produced by ParseSections.
const (
	SectionSummary       = "summary"
	SectionContributions = "key_contributions"
	SectionMethodology   = "methodology"
	SectionNovelty       = "novelty"
	SectionQA            = "qa"
)

// ParseSections splits a sectioned analysis into its parts. Text before
// the first marker goes to the summary. Markers are matched
// case-insensitively; unmarked bracket lines are dropped. Sections the
// model did not produce are absent from the map.
func ParseSections(text string) map[string]string {
	sections := make(map[string]string)

	current := SectionSummary
	var content []string

	flush := func() {
		if len(content) > 0 {
			sections[current] = strings.Join(content, "\n")
			content = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "[summary]"):
			flush()
			current = SectionSummary
		case strings.Contains(lower, "[key contribution"):
			flush()
			current = SectionContributions
		case strings.Contains(lower, "[methodology]"):
			flush()
			current = SectionMethodology
		case strings.Contains(lower, "[novelty]"):
			flush()
			current = SectionNovelty
		case strings.Contains(lower, "[q&a]"):
			flush()
			current = SectionQA
		case strings.HasPrefix(line, "["):
			// Unknown marker, skip the line itself.
		default:
			content = append(content, line)
		}
	}
	flush()

	return sections
}
