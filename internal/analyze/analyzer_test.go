package analyze_test

import (
	"context"
	"strings"
	"testing"

	"github.com/arxivmind/arxivmind/internal/analyze"
	"github.com/arxivmind/arxivmind/internal/fallback"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/pkg/models"
)

// recordingGen captures the prompt it receives and returns fixed content.
type recordingGen struct {
	content string
	prompt  string
	model   string
}

func (r *recordingGen) Kind() string { return "rec" }
func (r *recordingGen) Generate(ctx context.Context, model, prompt string) (*models.Generation, error) {
	r.prompt = prompt
	r.model = model
	return &models.Generation{
		Provider: "rec",
		Model:    model,
		Content:  r.content,
		Usage:    models.TokenUsage{TotalTokens: 42},
	}, nil
}
func (r *recordingGen) HealthCheck(ctx context.Context) error { return nil }

func newAnalyzer(gen *recordingGen, opts ...analyze.Option) *analyze.Analyzer {
	reg := provider.NewRegistry()
	reg.RegisterGeneration("rec", gen)
	candidates := []fallback.Candidate{{Driver: "rec", Model: "test-model"}}
	return analyze.New(fallback.New(reg), candidates, opts...)
}

func TestAnalyze_ParsesSections(t *testing.T) {
	gen := &recordingGen{content: "[SUMMARY]\nA summary.\n[NOVELTY]\nVery novel."}
	a := newAnalyzer(gen)

	res, err := a.Analyze(context.Background(), models.Request{
		RawText: "paper text",
		Title:   "Attention Is All You Need",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Sections[analyze.SectionSummary] != "A summary." {
		t.Errorf("summary = %q", res.Sections[analyze.SectionSummary])
	}
	if res.Sections[analyze.SectionNovelty] != "Very novel." {
		t.Errorf("novelty = %q", res.Sections[analyze.SectionNovelty])
	}
	if res.Result.Operation != models.OpAnalyze {
		t.Errorf("Operation = %s", res.Result.Operation)
	}
	if res.Usage.TotalTokens != 42 {
		t.Errorf("TotalTokens = %d", res.Usage.TotalTokens)
	}
	if !strings.Contains(gen.prompt, "Attention Is All You Need") {
		t.Error("prompt does not include the title")
	}
	if !strings.Contains(gen.prompt, "[SUMMARY]") {
		t.Error("prompt does not request sectioned output")
	}
}

func TestAnalyze_EmptyTextRejected(t *testing.T) {
	a := newAnalyzer(&recordingGen{content: "x"})
	_, err := a.Analyze(context.Background(), models.Request{})
	if provider.KindOf(err) != provider.KindInvalidArgument {
		t.Errorf("kind = %s, want invalid_argument", provider.KindOf(err))
	}
}

func TestAnalyze_TruncatesToBudget(t *testing.T) {
	gen := &recordingGen{content: "[SUMMARY]\nok"}
	a := newAnalyzer(gen, analyze.WithBudget(100))

	long := strings.Repeat("sentence here. ", 100)
	_, err := a.Analyze(context.Background(), models.Request{RawText: long})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if strings.Contains(gen.prompt, long) {
		t.Error("prompt contains untruncated input")
	}
}

func TestAnalyze_ModelPreferencesOverrideChain(t *testing.T) {
	gen := &recordingGen{content: "[SUMMARY]\nok"}
	a := newAnalyzer(gen)

	_, err := a.Analyze(context.Background(), models.Request{
		RawText:          "text",
		ModelPreferences: []string{"rec/preferred-model"},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if gen.model != "preferred-model" {
		t.Errorf("model = %q, want preferred-model", gen.model)
	}
}

func TestAnalyze_BadPreferenceRejected(t *testing.T) {
	a := newAnalyzer(&recordingGen{content: "x"})
	_, err := a.Analyze(context.Background(), models.Request{
		RawText:          "text",
		ModelPreferences: []string{"no-slash-spec"},
	})
	if provider.KindOf(err) != provider.KindInvalidArgument {
		t.Errorf("kind = %s, want invalid_argument", provider.KindOf(err))
	}
}

func TestCompare_NeedsTwoPapers(t *testing.T) {
	a := newAnalyzer(&recordingGen{content: "comparison"})
	_, err := a.Compare(context.Background(), []analyze.PaperInput{{Content: "one"}}, nil)
	if provider.KindOf(err) != provider.KindInvalidArgument {
		t.Errorf("kind = %s, want invalid_argument", provider.KindOf(err))
	}
}

func TestCompare_BuildsNumberedPrompt(t *testing.T) {
	gen := &recordingGen{content: "comparison result"}
	a := newAnalyzer(gen)

	res, err := a.Compare(context.Background(), []analyze.PaperInput{
		{Title: "First", Content: "alpha"},
		{Title: "Second", Content: "beta"},
	}, nil)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if res.Result.GeneratedText != "comparison result" {
		t.Errorf("GeneratedText = %q", res.Result.GeneratedText)
	}
	if !strings.Contains(gen.prompt, "Paper 1:") || !strings.Contains(gen.prompt, "Paper 2:") {
		t.Errorf("prompt missing numbered papers:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "First") || !strings.Contains(gen.prompt, "Second") {
		t.Error("prompt missing titles")
	}
}

func TestInsightsAndReview_NoSections(t *testing.T) {
	gen := &recordingGen{content: "free-form text"}
	a := newAnalyzer(gen)

	res, err := a.Insights(context.Background(), models.Request{RawText: "text"})
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if res.Sections != nil {
		t.Error("insights result should not be sectioned")
	}
	if res.Result.Operation != models.OpInsights {
		t.Errorf("Operation = %s", res.Result.Operation)
	}

	res, err = a.Review(context.Background(), models.Request{RawText: "text", Title: "T"})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if res.Result.Operation != models.OpReview {
		t.Errorf("Operation = %s", res.Result.Operation)
	}
	if !strings.Contains(gen.prompt, "peer reviewer") {
		t.Error("review prompt missing reviewer framing")
	}
}
