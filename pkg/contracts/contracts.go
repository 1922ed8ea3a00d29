// Package contracts defines the driver interfaces of the ArxivMind core.
//
// The orchestration layer is polymorphic over these interfaces: the
// fallback loop, the retrieval coordinator, and the ingester never know
// which concrete provider or store they are talking to. Swapping a
// hosted provider for a local one is a wiring change in main.go.
package contracts

import (
	"context"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
)

// ── Generation ──────────────────────────────────────────────

// GenerationDriver is a text-generation provider integration.
// Shipped drivers: OpenRouter, Hugging Face Inference.
type GenerationDriver interface {
	// Kind returns the provider identifier (e.g. "openrouter").
	Kind() string

	// Generate sends one prompt to the given model and returns the
	// generated text. Exactly one outbound call; the context deadline
	// bounds it. Failures are reported as *provider.CallError so the
	// orchestrator can decide retryability.
	Generate(ctx context.Context, model, prompt string) (*models.Generation, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}

// ── Embeddings ──────────────────────────────────────────────

// EmbeddingDriver computes vector embeddings for batches of text.
// Shipped drivers: Hugging Face feature-extraction, OpenAI, Ollama.
type EmbeddingDriver interface {
	// Kind returns the provider identifier (e.g. "huggingface").
	Kind() string

	// Dimensions returns the embedding dimensionality this driver produces.
	Dimensions() int

	// MaxBatchSize returns the max texts per Embed call.
	MaxBatchSize() int

	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}

// ── Vector store ────────────────────────────────────────────

// VectorStoreDriver is the nearest-neighbor store behind retrieval.
// Shipped drivers: memory (brute-force), sqlite, pgvector.
// Ingestion is append-only; search is read-mostly.
type VectorStoreDriver interface {
	// Kind returns the store identifier (e.g. "sqlite").
	Kind() string

	// Upsert stores docs, assigning IDs and insertion sequence numbers
	// where missing.
	Upsert(ctx context.Context, docs []models.VectorDoc) error

	// Search returns the topK stored docs nearest to vector by cosine
	// similarity, ordered by descending score with ties broken by
	// insertion order. An empty store yields an empty slice.
	Search(ctx context.Context, vector []float64, topK int) ([]models.SearchResult, error)

	// Delete removes docs by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored docs.
	Count(ctx context.Context) (int, error)

	// PurgeOlderThan removes docs created before cutoff and returns
	// how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// HealthCheck verifies the store is usable.
	HealthCheck(ctx context.Context) error
}
