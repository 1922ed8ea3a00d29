// Package fallback implements the request orchestration core: given an
// ordered list of candidate models, try each in turn until one succeeds
// or the list is exhausted, recording every attempt for diagnostics.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arxivmind/arxivmind/internal/metrics"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/internal/usage"
	"github.com/arxivmind/arxivmind/pkg/contracts"
	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Candidate names one generation driver plus the model to request from it.
type Candidate struct {
	Driver string // registry name, e.g. "openrouter"
	Model  string // provider-side model id, e.g. "anthropic/claude-3-haiku"
}

// ParseCandidate splits a "driver/model" spec. The model part may itself
// contain slashes (OpenRouter model ids do).
func ParseCandidate(spec string) (Candidate, error) {
	driver, model, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok || driver == "" || model == "" {
		return Candidate{}, fmt.Errorf("invalid candidate spec %q, want driver/model", spec)
	}
	return Candidate{Driver: driver, Model: model}, nil
}

// ParseCandidates parses an ordered spec list, preserving order.
func ParseCandidates(specs []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(specs))
	for _, s := range specs {
		c, err := ParseCandidate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ExhaustedError is returned when every candidate failed. It carries the
// full attempt sequence so callers can show which providers were tried
// and why each failed.
type ExhaustedError struct {
	Attempts []models.ProviderCallAttempt
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers exhausted, last error: %v", len(e.Attempts), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Kind returns the error kind for this failure.
func (e *ExhaustedError) Kind() provider.Kind { return provider.KindExhausted }

// Orchestrator runs the sequential fallback loop over registered drivers.
// Attempts are never parallel: rate limits are per provider, and a second
// in-flight call is wasted money once the first succeeds.
type Orchestrator struct {
	registry       *provider.Registry
	attemptTimeout time.Duration
	outbound       *semaphore.Weighted
	usage          *usage.Tracker
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithAttemptTimeout bounds each provider call. Default 60s.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithMaxOutbound caps concurrent outbound provider calls across all
// requests. Default 32.
func WithMaxOutbound(n int64) Option {
	return func(o *Orchestrator) { o.outbound = semaphore.NewWeighted(n) }
}

// WithUsageTracker attaches token/cost accounting.
func WithUsageTracker(t *usage.Tracker) Option {
	return func(o *Orchestrator) { o.usage = t }
}

// New creates a fallback orchestrator over the given driver registry.
func New(reg *provider.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:       reg,
		attemptTimeout: 60 * time.Second,
		outbound:       semaphore.NewWeighted(32),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate tries each candidate in caller order until one produces text.
// The returned attempt sequence is complete on both success and failure;
// on success its last entry is the successful attempt.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, candidates []Candidate, op models.Operation) (*models.Generation, []models.ProviderCallAttempt, error) {
	if len(candidates) == 0 {
		return nil, nil, provider.InvalidArgument("no candidate models configured")
	}

	attempts := make([]models.ProviderCallAttempt, 0, len(candidates))
	var lastErr error

	for _, cand := range candidates {
		gen, attempt, err := o.attemptGenerate(ctx, prompt, cand)
		attempts = append(attempts, attempt)
		if err == nil {
			if o.usage != nil {
				o.usage.Record(op, gen)
			}
			return gen, attempts, nil
		}
		if ctx.Err() != nil {
			// The caller is gone; further candidates would be wasted.
			return nil, attempts, ctx.Err()
		}
		lastErr = err
		log.Warn().
			Str("driver", cand.Driver).
			Str("model", cand.Model).
			Str("status", string(attempt.Status)).
			Err(err).
			Msg("Provider call failed, trying next candidate")
	}

	metrics.FallbackExhausted.Inc()
	return nil, attempts, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

func (o *Orchestrator) attemptGenerate(ctx context.Context, prompt string, cand Candidate) (*models.Generation, models.ProviderCallAttempt, error) {
	attempt := models.ProviderCallAttempt{Provider: cand.Driver, Model: cand.Model}

	driver, err := o.registry.Generation(cand.Driver)
	if err != nil {
		attempt.Status = models.AttemptUpstream
		attempt.Error = err.Error()
		return nil, attempt, err
	}

	if err := o.outbound.Acquire(ctx, 1); err != nil {
		attempt.Status = models.AttemptTimeout
		attempt.Error = err.Error()
		return nil, attempt, err
	}
	defer o.outbound.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	start := time.Now()
	gen, err := driver.Generate(callCtx, cand.Model, prompt)
	elapsed := time.Since(start)

	attempt.LatencyMs = elapsed.Milliseconds()
	metrics.ProviderLatency.WithLabelValues(cand.Driver).Observe(elapsed.Seconds())

	if err != nil {
		kind := provider.KindOf(err)
		attempt.Status = kind.AttemptStatus()
		attempt.Error = err.Error()
		metrics.ProviderAttempts.WithLabelValues(cand.Driver, string(attempt.Status)).Inc()
		return nil, attempt, err
	}

	attempt.Status = models.AttemptSuccess
	metrics.ProviderAttempts.WithLabelValues(cand.Driver, string(models.AttemptSuccess)).Inc()
	return gen, attempt, nil
}

// Embed tries each named embedding driver in order until one returns a
// vector for text.
func (o *Orchestrator) Embed(ctx context.Context, text string, drivers []string) ([]float64, []models.ProviderCallAttempt, error) {
	if len(drivers) == 0 {
		return nil, nil, provider.InvalidArgument("no embedding drivers configured")
	}

	attempts := make([]models.ProviderCallAttempt, 0, len(drivers))
	var lastErr error

	for _, name := range drivers {
		attempt := models.ProviderCallAttempt{Provider: name}

		driver, err := o.registry.Embedding(name)
		if err != nil {
			attempt.Status = models.AttemptUpstream
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			lastErr = err
			continue
		}

		if err := o.outbound.Acquire(ctx, 1); err != nil {
			attempt.Status = models.AttemptTimeout
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			return nil, attempts, err
		}

		callCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		start := time.Now()
		vectors, err := driver.Embed(callCtx, []string{text})
		cancel()
		o.outbound.Release(1)

		attempt.LatencyMs = time.Since(start).Milliseconds()

		if err == nil && len(vectors) == 1 {
			attempt.Status = models.AttemptSuccess
			attempts = append(attempts, attempt)
			metrics.ProviderAttempts.WithLabelValues(name, string(models.AttemptSuccess)).Inc()
			return vectors[0], attempts, nil
		}
		if err == nil {
			err = &provider.CallError{Kind: provider.KindMalformed, Provider: name, Err: fmt.Errorf("expected 1 embedding, got %d", len(vectors))}
		}

		kind := provider.KindOf(err)
		attempt.Status = kind.AttemptStatus()
		attempt.Error = err.Error()
		attempts = append(attempts, attempt)
		metrics.ProviderAttempts.WithLabelValues(name, string(attempt.Status)).Inc()
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}
		log.Warn().Str("driver", name).Err(err).Msg("Embedding call failed, trying next driver")
	}

	metrics.FallbackExhausted.Inc()
	return nil, attempts, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// EmbedBatch embeds texts through the driver chain, splitting into
// sub-batches per the driver's limit. The whole batch moves to the next
// driver on failure so every vector comes from the same model.
func (o *Orchestrator) EmbedBatch(ctx context.Context, texts []string, drivers []string) ([][]float64, []models.ProviderCallAttempt, error) {
	if len(drivers) == 0 {
		return nil, nil, provider.InvalidArgument("no embedding drivers configured")
	}
	if len(texts) == 0 {
		return nil, nil, nil
	}

	attempts := make([]models.ProviderCallAttempt, 0, len(drivers))
	var lastErr error

	for _, name := range drivers {
		attempt := models.ProviderCallAttempt{Provider: name}

		driver, err := o.registry.Embedding(name)
		if err != nil {
			attempt.Status = models.AttemptUpstream
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			lastErr = err
			continue
		}

		start := time.Now()
		vectors, err := o.embedAll(ctx, driver, texts)
		attempt.LatencyMs = time.Since(start).Milliseconds()

		if err == nil {
			attempt.Status = models.AttemptSuccess
			attempts = append(attempts, attempt)
			metrics.ProviderAttempts.WithLabelValues(name, string(models.AttemptSuccess)).Inc()
			return vectors, attempts, nil
		}

		kind := provider.KindOf(err)
		attempt.Status = kind.AttemptStatus()
		attempt.Error = err.Error()
		attempts = append(attempts, attempt)
		metrics.ProviderAttempts.WithLabelValues(name, string(attempt.Status)).Inc()
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}
		log.Warn().Str("driver", name).Int("texts", len(texts)).Err(err).Msg("Batch embedding failed, trying next driver")
	}

	metrics.FallbackExhausted.Inc()
	return nil, attempts, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// embedAll runs one outbound call per sub-batch, each under the attempt
// timeout and the outbound cap.
func (o *Orchestrator) embedAll(ctx context.Context, driver contracts.EmbeddingDriver, texts []string) ([][]float64, error) {
	batchSize := driver.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	out := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := o.outbound.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		vectors, err := driver.Embed(callCtx, texts[i:end])
		cancel()
		o.outbound.Release(1)

		if err != nil {
			return nil, err
		}
		if len(vectors) != end-i {
			return nil, &provider.CallError{Kind: provider.KindMalformed, Provider: driver.Kind(), Err: fmt.Errorf("expected %d embeddings, got %d", end-i, len(vectors))}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Run executes the plain generation path for one normalized request and
// assembles the payload. Retrieval-augmented paths call Generate and
// Assemble separately so matches can be attached.
func (o *Orchestrator) Run(ctx context.Context, content models.NormalizedContent, candidates []Candidate, op models.Operation) (*models.ResultPayload, error) {
	gen, attempts, err := o.Generate(ctx, content.Text, candidates, op)
	if err != nil {
		return nil, err
	}
	return Assemble(op, gen.Content, nil, attempts)
}
