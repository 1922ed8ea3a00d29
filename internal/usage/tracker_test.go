package usage

import (
	"testing"

	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestTracker_RecordAccumulates(t *testing.T) {
	tr := NewTracker()

	tr.Record(models.OpAnalyze, &models.Generation{
		Provider: "openrouter",
		Model:    "anthropic/claude-3-haiku",
		Usage:    models.TokenUsage{TotalTokens: 100, EstimatedCost: 0.01},
	})
	tr.Record(models.OpAnalyze, &models.Generation{
		Provider: "openrouter",
		Model:    "openai/gpt-4o-mini",
		Usage:    models.TokenUsage{TotalTokens: 50, EstimatedCost: 0.005},
	})
	tr.Record(models.OpCompare, &models.Generation{
		Provider: "huggingface",
		Model:    "facebook/bart-large-cnn",
		Usage:    models.TokenUsage{TotalTokens: 25},
	})

	s := tr.Summary()
	assert.Equal(t, int64(3), s.Requests)
	assert.Equal(t, int64(175), s.TotalTokens)
	assert.InDelta(t, 0.015, s.TotalCostUSD, 1e-9)
	assert.InDelta(t, 0.015, s.ByOperation["analyze"], 1e-9)
	assert.InDelta(t, 0.01, s.ByModel["anthropic/claude-3-haiku"], 1e-9)
	assert.InDelta(t, 0.015, s.ByProvider["openrouter"], 1e-9)
}

func TestTracker_NilGenerationIgnored(t *testing.T) {
	tr := NewTracker()
	tr.Record(models.OpAnalyze, nil)
	assert.Equal(t, int64(0), tr.Summary().Requests)
}

func TestTracker_SummaryIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.Record(models.OpAnalyze, &models.Generation{Provider: "p", Model: "m", Usage: models.TokenUsage{EstimatedCost: 1}})

	s := tr.Summary()
	s.ByOperation["analyze"] = 99

	assert.InDelta(t, 1, tr.Summary().ByOperation["analyze"], 1e-9)
}
