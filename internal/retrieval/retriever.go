// Package retrieval turns a query into its nearest stored paper chunks:
// embed the query through the fallback chain, then rank the corpus by
// cosine similarity.
package retrieval

import (
	"context"
	"fmt"

	"github.com/arxivmind/arxivmind/internal/fallback"
	"github.com/arxivmind/arxivmind/internal/metrics"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/pkg/contracts"
	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTopK is the match count used when the caller does not specify one.
const DefaultTopK = 5

const snippetLimit = 300

// Retriever coordinates query embedding and vector search.
type Retriever struct {
	orchestrator *fallback.Orchestrator
	store        contracts.VectorStoreDriver
	embedDrivers []string
}

// New creates a retriever. embedDrivers is the ordered embedding driver
// chain to try for query vectors.
func New(orchestrator *fallback.Orchestrator, store contracts.VectorStoreDriver, embedDrivers []string) *Retriever {
	return &Retriever{orchestrator: orchestrator, store: store, embedDrivers: embedDrivers}
}

// Retrieve returns up to topK matches for query, ordered by descending
// similarity. An empty corpus yields an empty slice, not an error. The
// attempt log covers the embedding calls made for the query.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievalMatch, []models.ProviderCallAttempt, error) {
	if topK <= 0 {
		return nil, nil, provider.InvalidArgument("topK must be positive, got %d", topK)
	}
	if query == "" {
		return nil, nil, provider.InvalidArgument("query must not be empty")
	}

	vector, attempts, err := r.orchestrator.Embed(ctx, query, r.embedDrivers)
	if err != nil {
		return nil, attempts, err
	}

	results, err := r.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, attempts, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]models.RetrievalMatch, len(results))
	for i, res := range results {
		matches[i] = models.RetrievalMatch{
			DocumentID: res.Doc.ID,
			Score:      res.Score,
			Snippet:    snippet(res.Doc.Content),
		}
	}

	metrics.RetrievalMatches.Observe(float64(len(matches)))
	log.Debug().Int("top_k", topK).Int("matches", len(matches)).Msg("Retrieval complete")
	return matches, attempts, nil
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLimit {
		return content
	}
	return string(runes[:snippetLimit])
}
