package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultMaxVectors is the cap for the in-memory store (50K). Beyond
// that, the sqlite or pgvector drivers are the right tool.
const DefaultMaxVectors = 50_000

// MemoryStore is a lightweight in-process vector store using brute-force
// cosine similarity. Suitable for development and tests; it holds the
// paper corpus only for the lifetime of the process.
type MemoryStore struct {
	mu         sync.RWMutex
	docs       map[string]*models.VectorDoc
	nextSeq    int64
	maxVectors int
}

// MemoryOption configures the memory store.
type MemoryOption func(*MemoryStore)

// WithMaxVectors sets the maximum number of vectors (default 50K).
func WithMaxVectors(max int) MemoryOption {
	return func(s *MemoryStore) { s.maxVectors = max }
}

// NewMemoryStore creates an in-memory vector store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		docs:       make(map[string]*models.VectorDoc),
		maxVectors: DefaultMaxVectors,
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Info().Int("max_vectors", s.maxVectors).Msg("Memory vector store initialized")
	return s
}

func (s *MemoryStore) Kind() string { return "memory" }

// Upsert stores docs, assigning IDs and insertion sequence numbers to
// new entries. Updating an existing ID keeps its original sequence so
// tie-breaking stays stable.
func (s *MemoryStore) Upsert(_ context.Context, docs []models.VectorDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCount := 0
	for _, d := range docs {
		if _, exists := s.docs[d.ID]; d.ID == "" || !exists {
			newCount++
		}
	}
	if total := len(s.docs) + newCount; total > s.maxVectors {
		return fmt.Errorf("memory vector store capacity exceeded: %d > %d (switch to sqlite or pgvector)", total, s.maxVectors)
	}

	now := time.Now()
	for _, d := range docs {
		cp := d
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		if prev, ok := s.docs[cp.ID]; ok {
			cp.Seq = prev.Seq
		} else {
			s.nextSeq++
			cp.Seq = s.nextSeq
		}
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		s.docs[cp.ID] = &cp
	}
	return nil
}

// Search returns the topK nearest docs by cosine similarity, descending,
// with ties broken by insertion order for determinism.
func (s *MemoryStore) Search(_ context.Context, vector []float64, topK int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   *models.VectorDoc
		score float64
	}
	var candidates []scored

	for _, d := range s.docs {
		if len(d.Vector) != len(vector) {
			continue
		}
		candidates = append(candidates, scored{doc: d, score: CosineSimilarity(vector, d.Vector)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].doc.Seq < candidates[j].doc.Seq
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	results := make([]models.SearchResult, topK)
	for i := 0; i < topK; i++ {
		results[i] = models.SearchResult{Doc: *candidates[i].doc, Score: candidates[i].score}
	}
	return results, nil
}

func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

// PurgeOlderThan removes docs created before cutoff.
func (s *MemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, d := range s.docs {
		if d.CreatedAt.Before(cutoff) {
			delete(s.docs, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil // always healthy, it's in-memory
}

// CosineSimilarity computes the cosine of the angle between a and b.
// Zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
