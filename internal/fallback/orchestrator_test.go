package fallback_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arxivmind/arxivmind/internal/fallback"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/pkg/models"
)

// fakeGen is a scripted GenerationDriver.
type fakeGen struct {
	kind    string
	err     error
	content string
	calls   int
}

func (f *fakeGen) Kind() string { return f.kind }
func (f *fakeGen) Generate(ctx context.Context, model, prompt string) (*models.Generation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Generation{Provider: f.kind, Model: model, Content: f.content}, nil
}
func (f *fakeGen) HealthCheck(ctx context.Context) error { return f.err }

// fakeEmbed is a scripted EmbeddingDriver.
type fakeEmbed struct {
	kind   string
	err    error
	vector []float64
	batch  int
	calls  int
}

func (f *fakeEmbed) Kind() string    { return f.kind }
func (f *fakeEmbed) Dimensions() int { return len(f.vector) }
func (f *fakeEmbed) MaxBatchSize() int {
	if f.batch > 0 {
		return f.batch
	}
	return 16
}
func (f *fakeEmbed) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}
func (f *fakeEmbed) HealthCheck(ctx context.Context) error { return f.err }

func callErr(kind provider.Kind, name string) error {
	return &provider.CallError{Kind: kind, Provider: name, Err: errors.New("scripted failure")}
}

func TestGenerate_FallsBackUntilSuccess(t *testing.T) {
	reg := provider.NewRegistry()
	a := &fakeGen{kind: "a", err: callErr(provider.KindTimeout, "a")}
	b := &fakeGen{kind: "b", err: callErr(provider.KindTimeout, "b")}
	c := &fakeGen{kind: "c", content: "answer"}
	d := &fakeGen{kind: "d", content: "never reached"}
	reg.RegisterGeneration("a", a)
	reg.RegisterGeneration("b", b)
	reg.RegisterGeneration("c", c)
	reg.RegisterGeneration("d", d)

	o := fallback.New(reg)
	candidates := []fallback.Candidate{
		{Driver: "a", Model: "m1"},
		{Driver: "b", Model: "m2"},
		{Driver: "c", Model: "m3"},
		{Driver: "d", Model: "m4"},
	}

	gen, attempts, err := o.Generate(context.Background(), "prompt", candidates, models.OpAnalyze)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.Content != "answer" {
		t.Errorf("Content = %q, want %q", gen.Content, "answer")
	}
	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(attempts))
	}
	if attempts[0].Status != models.AttemptTimeout || attempts[1].Status != models.AttemptTimeout {
		t.Errorf("failed attempts not recorded as timeout: %+v", attempts[:2])
	}
	if attempts[2].Status != models.AttemptSuccess {
		t.Errorf("last attempt status = %s, want success", attempts[2].Status)
	}
	if d.calls != 0 {
		t.Errorf("driver after the successful one was called %d times, want 0", d.calls)
	}
}

func TestGenerate_AllProvidersExhausted(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterGeneration("a", &fakeGen{kind: "a", err: callErr(provider.KindRateLimited, "a")})
	reg.RegisterGeneration("b", &fakeGen{kind: "b", err: callErr(provider.KindUpstream, "b")})

	o := fallback.New(reg)
	candidates := []fallback.Candidate{{Driver: "a", Model: "m1"}, {Driver: "b", Model: "m2"}}

	_, attempts, err := o.Generate(context.Background(), "prompt", candidates, models.OpAnalyze)
	var exhausted *fallback.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want ExhaustedError", err)
	}
	if len(attempts) != len(candidates) {
		t.Errorf("attempts = %d, want %d", len(attempts), len(candidates))
	}
	if len(exhausted.Attempts) != len(candidates) {
		t.Errorf("ExhaustedError.Attempts = %d, want %d", len(exhausted.Attempts), len(candidates))
	}
	if attempts[0].Status != models.AttemptRateLimited {
		t.Errorf("attempt 0 status = %s, want rate_limited", attempts[0].Status)
	}
	if attempts[1].Status != models.AttemptUpstream {
		t.Errorf("attempt 1 status = %s, want upstream_error", attempts[1].Status)
	}
}

func TestGenerate_EmptyCandidateList(t *testing.T) {
	o := fallback.New(provider.NewRegistry())
	_, _, err := o.Generate(context.Background(), "prompt", nil, models.OpAnalyze)
	if provider.KindOf(err) != provider.KindInvalidArgument {
		t.Errorf("kind = %s, want invalid_argument", provider.KindOf(err))
	}
}

func TestGenerate_MalformedIsNotSuccess(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterGeneration("bad", &fakeGen{kind: "bad", err: callErr(provider.KindMalformed, "bad")})
	good := &fakeGen{kind: "good", content: "ok"}
	reg.RegisterGeneration("good", good)

	o := fallback.New(reg)
	gen, attempts, err := o.Generate(context.Background(), "p",
		[]fallback.Candidate{{Driver: "bad", Model: "m"}, {Driver: "good", Model: "m"}}, models.OpCompare)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if attempts[0].Status != models.AttemptMalformed {
		t.Errorf("attempt 0 status = %s, want malformed_response", attempts[0].Status)
	}
	if gen.Provider != "good" {
		t.Errorf("Provider = %s, want good", gen.Provider)
	}
}

func TestGenerate_UnknownDriverContinues(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterGeneration("real", &fakeGen{kind: "real", content: "ok"})

	o := fallback.New(reg)
	gen, attempts, err := o.Generate(context.Background(), "p",
		[]fallback.Candidate{{Driver: "missing", Model: "m"}, {Driver: "real", Model: "m"}}, models.OpAnalyze)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.Content != "ok" {
		t.Errorf("Content = %q, want ok", gen.Content)
	}
	if len(attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(attempts))
	}
}

func TestEmbed_FallsBack(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterEmbedding("down", &fakeEmbed{kind: "down", err: callErr(provider.KindUpstream, "down")})
	reg.RegisterEmbedding("up", &fakeEmbed{kind: "up", vector: []float64{0.1, 0.2}})

	o := fallback.New(reg)
	vec, attempts, err := o.Embed(context.Background(), "query", []string{"down", "up"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vector length = %d, want 2", len(vec))
	}
	if len(attempts) != 2 || attempts[1].Status != models.AttemptSuccess {
		t.Errorf("attempts = %+v, want 2 with final success", attempts)
	}
}

func TestEmbed_Exhausted(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterEmbedding("a", &fakeEmbed{kind: "a", err: callErr(provider.KindTimeout, "a")})

	o := fallback.New(reg)
	_, attempts, err := o.Embed(context.Background(), "query", []string{"a"})
	var exhausted *fallback.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want ExhaustedError", err)
	}
	if len(attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(attempts))
	}
}

func TestEmbedBatch_SplitsByDriverLimit(t *testing.T) {
	reg := provider.NewRegistry()
	small := &fakeEmbed{kind: "small", vector: []float64{1, 0}, batch: 2}
	reg.RegisterEmbedding("small", small)

	o := fallback.New(reg)
	texts := []string{"a", "b", "c", "d", "e"}
	vectors, attempts, err := o.EmbedBatch(context.Background(), texts, []string{"small"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != len(texts) {
		t.Errorf("vectors = %d, want %d", len(vectors), len(texts))
	}
	if small.calls != 3 {
		t.Errorf("driver calls = %d, want 3 for 5 texts at batch size 2", small.calls)
	}
	if len(attempts) != 1 || attempts[0].Status != models.AttemptSuccess {
		t.Errorf("attempts = %+v, want single success", attempts)
	}
}

func TestEmbedBatch_FallsBackWholeBatch(t *testing.T) {
	reg := provider.NewRegistry()
	down := &fakeEmbed{kind: "down", err: callErr(provider.KindUpstream, "down")}
	up := &fakeEmbed{kind: "up", vector: []float64{1, 0}}
	reg.RegisterEmbedding("down", down)
	reg.RegisterEmbedding("up", up)

	o := fallback.New(reg)
	vectors, attempts, err := o.EmbedBatch(context.Background(), []string{"a", "b", "c"}, []string{"down", "up"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Errorf("vectors = %d, want 3", len(vectors))
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].Status != models.AttemptUpstream || attempts[1].Status != models.AttemptSuccess {
		t.Errorf("attempt statuses = %s, %s", attempts[0].Status, attempts[1].Status)
	}
	if up.calls != 1 {
		t.Errorf("fallback driver calls = %d, want 1", up.calls)
	}
}

func TestEmbedBatch_Exhausted(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterEmbedding("a", &fakeEmbed{kind: "a", err: callErr(provider.KindRateLimited, "a")})

	o := fallback.New(reg)
	_, attempts, err := o.EmbedBatch(context.Background(), []string{"x"}, []string{"a"})
	var exhausted *fallback.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want ExhaustedError", err)
	}
	if len(attempts) != 1 || attempts[0].Status != models.AttemptRateLimited {
		t.Errorf("attempts = %+v, want single rate_limited", attempts)
	}
}

func TestParseCandidate(t *testing.T) {
	c, err := fallback.ParseCandidate("openrouter/mistralai/mistral-small-3.1-24b-instruct:free")
	if err != nil {
		t.Fatalf("ParseCandidate() error = %v", err)
	}
	if c.Driver != "openrouter" {
		t.Errorf("Driver = %q, want openrouter", c.Driver)
	}
	if c.Model != "mistralai/mistral-small-3.1-24b-instruct:free" {
		t.Errorf("Model = %q", c.Model)
	}

	if _, err := fallback.ParseCandidate("nodriver"); err == nil {
		t.Error("ParseCandidate(nodriver) should fail")
	}
}

func TestAssemble(t *testing.T) {
	payload, err := fallback.Assemble(models.OpInsights, "text", nil, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if payload.Matches == nil || payload.Attempts == nil {
		t.Error("Assemble() should default nil slices to empty")
	}

	_, err = fallback.Assemble(models.OpInsights, "", nil, nil)
	if provider.KindOf(err) != provider.KindNoResult {
		t.Errorf("empty generation: kind = %s, want no_result", provider.KindOf(err))
	}
}
