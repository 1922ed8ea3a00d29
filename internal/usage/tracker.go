// Package usage accumulates token and cost accounting across requests.
package usage

import (
	"sync"

	"github.com/arxivmind/arxivmind/pkg/models"
)

// Tracker aggregates provider usage for this process. Thread-safe.
type Tracker struct {
	mu         sync.Mutex
	requests   int64
	tokens     int64
	cost       float64
	byOp       map[string]float64
	byModel    map[string]float64
	byProvider map[string]float64
}

// NewTracker creates an empty usage tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byOp:       make(map[string]float64),
		byModel:    make(map[string]float64),
		byProvider: make(map[string]float64),
	}
}

// Record folds one successful generation into the running totals.
func (t *Tracker) Record(op models.Operation, gen *models.Generation) {
	if gen == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests++
	t.tokens += gen.Usage.TotalTokens
	t.cost += gen.Usage.EstimatedCost
	t.byOp[string(op)] += gen.Usage.EstimatedCost
	t.byModel[gen.Model] += gen.Usage.EstimatedCost
	t.byProvider[gen.Provider] += gen.Usage.EstimatedCost
}

// Summary returns a copy of the accumulated totals.
func (t *Tracker) Summary() models.UsageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := models.UsageSummary{
		Requests:     t.requests,
		TotalTokens:  t.tokens,
		TotalCostUSD: t.cost,
		ByOperation:  make(map[string]float64, len(t.byOp)),
		ByModel:      make(map[string]float64, len(t.byModel)),
		ByProvider:   make(map[string]float64, len(t.byProvider)),
	}
	for k, v := range t.byOp {
		s.ByOperation[k] = v
	}
	for k, v := range t.byModel {
		s.ByModel[k] = v
	}
	for k, v := range t.byProvider {
		s.ByProvider[k] = v
	}
	return s
}
