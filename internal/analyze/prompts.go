package analyze

import (
	"fmt"
	"strings"
)

// buildAnalyzePrompt asks for the sectioned analysis the parser in
// sections.go understands.
func buildAnalyzePrompt(title, content string) string {
	var b strings.Builder
	b.WriteString("Analyze this research paper in detail, focusing especially on the summary and novelty:\n\n")
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", title)
	}
	fmt.Fprintf(&b, "Content:\n%s\n\n", content)
	b.WriteString(`[SUMMARY]
Provide a detailed 2-3 paragraph summary that covers:
- Main objectives and research problem
- Key methodologies and approaches used
- Significant findings and their implications
- Overall contribution to the field

[KEY CONTRIBUTIONS]
- List the main contributions and findings
- Highlight breakthrough results

[METHODOLOGY]
- Describe the technical approach
- List key techniques

[NOVELTY]
Provide a detailed analysis of the paper's novelty:
- What makes this work innovative and unique
- How it advances the state of the art
- Comparison with existing approaches
- Potential impact on the field

[Q&A]
- Key limitations
- Future directions`)
	return b.String()
}

// buildComparePrompt covers up to three papers; more would blow the
// context budget without improving the comparison.
func buildComparePrompt(papers []PaperInput) string {
	var b strings.Builder
	b.WriteString("Compare and analyze these research papers:\n\n")
	for i, p := range papers {
		if i >= 3 {
			break
		}
		title := p.Title
		if title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(&b, "Paper %d:\nTitle: %s\n%s\n\n", i+1, title, truncateRunes(p.Content, 1000))
	}
	b.WriteString(`Please provide:
1. Key similarities and differences in:
   - Methodology
   - Findings
   - Applications
2. How these papers relate to each other
3. Combined insights and implications
4. Suggestions for future research

Format your response in clear sections.`)
	return b.String()
}

func buildInsightsPrompt(title, content string) string {
	var b strings.Builder
	b.WriteString("Generate detailed insights for this research paper:\n\n")
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	fmt.Fprintf(&b, "Content:\n%s\n\n", content)
	b.WriteString(`Please provide:
1. Novel contributions and key findings
2. Technical insights and methodology analysis
3. Practical applications and impact
4. Research directions and opportunities
5. Potential limitations and challenges

Format your response in clear sections with bullet points where appropriate.`)
	return b.String()
}

func buildReviewPrompt(title, content string) string {
	var b strings.Builder
	b.WriteString("As an expert peer reviewer, provide a detailed critique of this paper:\n\n")
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", title)
	}
	fmt.Fprintf(&b, "Paper content:\n%s\n\n", content)
	b.WriteString(`Provide:
1. STRENGTHS (3-4 points)
2. WEAKNESSES (3-4 points)
3. TECHNICAL ISSUES (if any)
4. CLARITY AND PRESENTATION
5. SIGNIFICANCE AND IMPACT
6. RECOMMENDATION (Accept/Minor Revision/Major Revision/Reject)

Be constructive and specific.`)
	return b.String()
}

// withContext appends retrieved corpus snippets to a prompt.
func withContext(prompt string, snippets []string) string {
	if len(snippets) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nRelated excerpts from previously ingested papers:\n")
	for i, s := range snippets {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, s)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
