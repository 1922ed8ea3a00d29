// Package analyze implements the paper analysis operations: sectioned
// analysis, multi-paper comparison, insight generation, and peer review.
// Each operation normalizes the input, optionally augments the prompt
// with retrieved corpus context, and runs the generation fallback chain.
package analyze

import (
	"context"
	"time"

	"github.com/arxivmind/arxivmind/internal/fallback"
	"github.com/arxivmind/arxivmind/internal/normalize"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/internal/retrieval"
	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/rs/zerolog/log"
)

// PaperInput is one paper in a comparison request.
type PaperInput struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Analyzer runs the analysis operations.
type Analyzer struct {
	orchestrator *fallback.Orchestrator
	retriever    *retrieval.Retriever // nil disables context augmentation
	candidates   []fallback.Candidate
	budget       int
	topK         int
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithRetriever enables retrieval-augmented prompts.
func WithRetriever(r *retrieval.Retriever) Option {
	return func(a *Analyzer) { a.retriever = r }
}

// WithBudget sets the normalization character budget.
func WithBudget(n int) Option {
	return func(a *Analyzer) { a.budget = n }
}

// WithTopK sets how many corpus matches augment each prompt.
func WithTopK(k int) Option {
	return func(a *Analyzer) { a.topK = k }
}

// New creates an analyzer. candidates is the default generation chain,
// used when a request carries no model preferences.
func New(orchestrator *fallback.Orchestrator, candidates []fallback.Candidate, opts ...Option) *Analyzer {
	a := &Analyzer{
		orchestrator: orchestrator,
		candidates:   candidates,
		budget:       normalize.DefaultBudget,
		topK:         retrieval.DefaultTopK,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the sectioned analysis operation for one paper.
func (a *Analyzer) Analyze(ctx context.Context, req models.Request) (*models.AnalysisResult, error) {
	return a.run(ctx, req, models.OpAnalyze, func(content string) string {
		return buildAnalyzePrompt(req.Title, content)
	}, true)
}

// Insights generates cross-cutting insights for one paper.
func (a *Analyzer) Insights(ctx context.Context, req models.Request) (*models.AnalysisResult, error) {
	return a.run(ctx, req, models.OpInsights, func(content string) string {
		return buildInsightsPrompt(req.Title, content)
	}, false)
}

// Review produces a structured peer-review critique for one paper.
func (a *Analyzer) Review(ctx context.Context, req models.Request) (*models.AnalysisResult, error) {
	return a.run(ctx, req, models.OpReview, func(content string) string {
		return buildReviewPrompt(req.Title, content)
	}, false)
}

// Compare analyzes multiple papers against each other. Needs at least two.
func (a *Analyzer) Compare(ctx context.Context, papers []PaperInput, prefs []string) (*models.AnalysisResult, error) {
	if len(papers) < 2 {
		return nil, provider.InvalidArgument("comparison needs at least 2 papers, got %d", len(papers))
	}
	for i := range papers {
		papers[i].Content = normalize.Normalize(papers[i].Content, a.budget).Text
	}

	candidates, err := a.resolveCandidates(prefs)
	if err != nil {
		return nil, err
	}

	gen, attempts, err := a.orchestrator.Generate(ctx, buildComparePrompt(papers), candidates, models.OpCompare)
	if err != nil {
		return nil, err
	}

	payload, err := fallback.Assemble(models.OpCompare, gen.Content, nil, attempts)
	if err != nil {
		return nil, err
	}
	return &models.AnalysisResult{
		Result:    payload,
		Usage:     gen.Usage,
		Timestamp: time.Now(),
	}, nil
}

func (a *Analyzer) run(ctx context.Context, req models.Request, op models.Operation, prompt func(content string) string, sectioned bool) (*models.AnalysisResult, error) {
	if req.RawText == "" {
		return nil, provider.InvalidArgument("raw_text must not be empty")
	}

	content := normalize.Normalize(req.RawText, a.budget)
	if content.Truncated {
		log.Debug().
			Int("original_length", content.OriginalLength).
			Int("budget", a.budget).
			Msg("Input truncated to budget")
	}

	candidates, err := a.resolveCandidates(req.ModelPreferences)
	if err != nil {
		return nil, err
	}

	matches := a.augment(ctx, content.Text)
	snippets := make([]string, len(matches))
	for i, m := range matches {
		snippets[i] = m.Snippet
	}

	gen, attempts, err := a.orchestrator.Generate(ctx, withContext(prompt(content.Text), snippets), candidates, op)
	if err != nil {
		return nil, err
	}

	payload, err := fallback.Assemble(op, gen.Content, matches, attempts)
	if err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{
		Result:    payload,
		Usage:     gen.Usage,
		Timestamp: time.Now(),
	}
	if sectioned {
		result.Sections = ParseSections(gen.Content)
	}
	return result, nil
}

// augment retrieves corpus matches for the content. Retrieval failures
// are logged and skipped: the generation should proceed without context
// rather than fail.
func (a *Analyzer) augment(ctx context.Context, content string) []models.RetrievalMatch {
	if a.retriever == nil {
		return nil
	}

	matches, _, err := a.retriever.Retrieve(ctx, content, a.topK)
	if err != nil {
		log.Warn().Err(err).Msg("Context retrieval failed, proceeding without")
		return nil
	}
	return matches
}

func (a *Analyzer) resolveCandidates(prefs []string) ([]fallback.Candidate, error) {
	if len(prefs) == 0 {
		return a.candidates, nil
	}
	candidates, err := fallback.ParseCandidates(prefs)
	if err != nil {
		return nil, provider.InvalidArgument("invalid model preference: %v", err)
	}
	return candidates, nil
}
