package retention

import (
	"context"
	"testing"
	"time"

	"github.com/arxivmind/arxivmind/internal/vectorstore"
	"github.com/arxivmind/arxivmind/pkg/models"
)

func TestRunOnce_PurgesExpiredDocs(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	store.Upsert(ctx, []models.VectorDoc{
		{ID: "old", Vector: []float64{1}, CreatedAt: old},
		{ID: "fresh", Vector: []float64{1}},
	})

	j := NewJanitor(store, time.Hour, 24*time.Hour)
	purged, err := j.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestRunOnce_NothingExpired(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()
	store.Upsert(ctx, []models.VectorDoc{{ID: "a", Vector: []float64{1}}})

	j := NewJanitor(store, time.Hour, 24*time.Hour)
	purged, err := j.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if purged != 0 {
		t.Errorf("purged = %d, want 0", purged)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	j := NewJanitor(store, time.Hour, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop on cancel")
	}
}
