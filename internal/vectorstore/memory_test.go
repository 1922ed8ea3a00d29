package vectorstore

import (
	"context"
	"math"
	"testing"

	"github.com/arxivmind/arxivmind/pkg/models"
)

func TestMemoryStore_SearchOrdersByScore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	docs := []models.VectorDoc{
		{ID: "far", Content: "far", Vector: []float64{0, 1, 0}},
		{ID: "near", Content: "near", Vector: []float64{1, 0.1, 0}},
		{ID: "exact", Content: "exact", Vector: []float64{1, 0, 0}},
	}
	if err := s.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := s.Search(ctx, []float64{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Doc.ID != "exact" || results[1].Doc.ID != "near" || results[2].Doc.ID != "far" {
		t.Errorf("order = %s, %s, %s", results[0].Doc.ID, results[1].Doc.ID, results[2].Doc.ID)
	}
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// All identical vectors, so every score ties.
	for _, id := range []string{"first", "second", "third"} {
		if err := s.Upsert(ctx, []models.VectorDoc{{ID: id, Vector: []float64{1, 1}}}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}

	results, err := s.Search(ctx, []float64{1, 1}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if results[i].Doc.ID != w {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Doc.ID, w)
		}
	}
}

func TestMemoryStore_UpdateKeepsSeq(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Upsert(ctx, []models.VectorDoc{{ID: "a", Vector: []float64{1, 1}}})
	s.Upsert(ctx, []models.VectorDoc{{ID: "b", Vector: []float64{1, 1}}})
	// Re-upserting "a" must not move it behind "b" in tie-breaks.
	s.Upsert(ctx, []models.VectorDoc{{ID: "a", Content: "updated", Vector: []float64{1, 1}}})

	results, _ := s.Search(ctx, []float64{1, 1}, 2)
	if results[0].Doc.ID != "a" {
		t.Errorf("results[0] = %s, want a", results[0].Doc.ID)
	}
	if results[0].Doc.Content != "updated" {
		t.Errorf("Content = %q, want updated", results[0].Doc.Content)
	}
}

func TestMemoryStore_TopKClampedToSize(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Upsert(ctx, []models.VectorDoc{{Vector: []float64{1, 0}}})

	results, err := s.Search(ctx, []float64{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

func TestMemoryStore_EmptyStoreReturnsEmpty(t *testing.T) {
	s := NewMemoryStore()
	results, err := s.Search(context.Background(), []float64{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestMemoryStore_SkipsDimensionMismatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Upsert(ctx, []models.VectorDoc{
		{ID: "ok", Vector: []float64{1, 0}},
		{ID: "wrong", Vector: []float64{1, 0, 0}},
	})

	results, _ := s.Search(ctx, []float64{1, 0}, 5)
	if len(results) != 1 || results[0].Doc.ID != "ok" {
		t.Errorf("results = %+v, want only ok", results)
	}
}

func TestMemoryStore_CapacityLimit(t *testing.T) {
	s := NewMemoryStore(WithMaxVectors(2))
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.VectorDoc{{ID: "a", Vector: []float64{1}}, {ID: "b", Vector: []float64{1}}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Upsert(ctx, []models.VectorDoc{{ID: "c", Vector: []float64{1}}}); err == nil {
		t.Error("Upsert over capacity should fail")
	}
	// Updates to existing IDs do not count against capacity.
	if err := s.Upsert(ctx, []models.VectorDoc{{ID: "a", Vector: []float64{2}}}); err != nil {
		t.Errorf("Upsert update error = %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Upsert(ctx, []models.VectorDoc{{ID: "a", Vector: []float64{1}}, {ID: "b", Vector: []float64{1}}})

	if err := s.Delete(ctx, []string{"a"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
