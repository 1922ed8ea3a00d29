// Package retention implements the corpus retention policy: vector docs
// older than the configured window are purged on a fixed interval so the
// store does not grow without bound. The janitor runs as a background
// goroutine and respects context cancellation for graceful shutdown.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Purger is the store capability the janitor needs. All vector store
// drivers implement it.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Janitor periodically purges expired vector docs.
type Janitor struct {
	store    Purger
	interval time.Duration
	maxAge   time.Duration
}

// NewJanitor creates a retention janitor. Docs older than maxAge are
// purged every interval.
func NewJanitor(store Purger, interval, maxAge time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	return &Janitor{store: store, interval: interval, maxAge: maxAge}
}

// Start runs the janitor until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Dur("max_age", j.maxAge).
		Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("Retention cycle failed")
			}
		}
	}
}

// RunOnce executes a single retention cycle and returns the purge count.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-j.maxAge)
	purged, err := j.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		log.Info().Int("purged", purged).Time("cutoff", cutoff).Msg("Retention cycle complete")
	}
	return purged, nil
}
