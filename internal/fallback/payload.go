package fallback

import (
	"fmt"

	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/pkg/models"
)

// Assemble composes the final payload from generation output, retrieval
// context, and the attempt log. Pure data composition: no I/O. A missing
// generation text means the orchestrator reported exhaustion upstream
// and is surfaced as a no_result error.
func Assemble(op models.Operation, generated string, matches []models.RetrievalMatch, attempts []models.ProviderCallAttempt) (*models.ResultPayload, error) {
	if generated == "" {
		return nil, &provider.CallError{Kind: provider.KindNoResult, Err: fmt.Errorf("no generation produced for operation %s", op)}
	}
	if matches == nil {
		matches = []models.RetrievalMatch{}
	}
	if attempts == nil {
		attempts = []models.ProviderCallAttempt{}
	}
	return &models.ResultPayload{
		Operation:     op,
		GeneratedText: generated,
		Matches:       matches,
		Attempts:      attempts,
	}, nil
}
