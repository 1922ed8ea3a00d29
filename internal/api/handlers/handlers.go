// Package handlers implements the HTTP handlers for the ArxivMind API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/arxivmind/arxivmind/internal/analyze"
	"github.com/arxivmind/arxivmind/internal/arxiv"
	"github.com/arxivmind/arxivmind/internal/fallback"
	"github.com/arxivmind/arxivmind/internal/ingest"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/internal/retrieval"
	"github.com/arxivmind/arxivmind/internal/usage"
	"github.com/arxivmind/arxivmind/pkg/contracts"
	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Analyzer  *analyze.Analyzer
	Retriever *retrieval.Retriever
	Ingester  *ingest.Ingester
	Arxiv     *arxiv.Client
	Usage     *usage.Tracker
	Registry  *provider.Registry
	Store     contracts.VectorStoreDriver
	TopK      int
}

// ── Paper operations ─────────────────────────────────────────

func (h *Handlers) AnalyzePaper(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		respondProviderError(w, err)
		return
	}

	log.Info().Str("title", req.Title).Int("attempts", len(result.Result.Attempts)).Msg("Paper analyzed")
	respondJSON(w, http.StatusOK, result)
}

type compareRequest struct {
	Papers           []analyze.PaperInput `json:"papers"`
	ModelPreferences []string             `json:"model_preferences,omitempty"`
}

func (h *Handlers) ComparePapers(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Analyzer.Compare(r.Context(), req.Papers, req.ModelPreferences)
	if err != nil {
		respondProviderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Analyzer.Insights(r.Context(), req)
	if err != nil {
		respondProviderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) PeerReview(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Analyzer.Review(r.Context(), req)
	if err != nil {
		respondProviderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ── Ingestion & retrieval ────────────────────────────────────

func (h *Handlers) IngestPapers(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		respondError(w, http.StatusBadRequest, "No documents to ingest")
		return
	}

	result, err := h.Ingester.Ingest(r.Context(), req)
	if err != nil {
		respondProviderError(w, err)
		return
	}

	log.Info().Int("documents", result.DocumentsProcessed).Int("chunks", result.ChunksCreated).Msg("Papers ingested")
	respondJSON(w, http.StatusOK, result)
}

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type retrieveResponse struct {
	Matches  []models.RetrievalMatch      `json:"matches"`
	Attempts []models.ProviderCallAttempt `json:"attempts"`
}

func (h *Handlers) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TopK == 0 {
		req.TopK = h.TopK
	}

	matches, attempts, err := h.Retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		respondProviderError(w, err)
		return
	}
	if matches == nil {
		matches = []models.RetrievalMatch{}
	}
	if attempts == nil {
		attempts = []models.ProviderCallAttempt{}
	}

	respondJSON(w, http.StatusOK, retrieveResponse{Matches: matches, Attempts: attempts})
}

// ── arXiv ────────────────────────────────────────────────────

func (h *Handlers) SearchArxiv(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxResults, _ := strconv.Atoi(q.Get("max_results"))

	papers, err := h.Arxiv.Search(r.Context(), arxiv.SearchParams{
		Query:      q.Get("query"),
		Category:   q.Get("category"),
		MaxResults: maxResults,
		SortBy:     q.Get("sort_by"),
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if papers == nil {
		papers = []models.ArxivPaper{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"papers": papers,
		"count":  len(papers),
	})
}

func (h *Handlers) GetArxivPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paperID")

	paper, err := h.Arxiv.Paper(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, paper)
}

// ── Usage & health ───────────────────────────────────────────

// Readiness reports whether the service can serve traffic. The liveness
// endpoint stays trivial; this one touches the vector store.
func (h *Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.HealthCheck(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	count, _ := h.Store.Count(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"store":     h.Store.Kind(),
		"documents": count,
	})
}

func (h *Handlers) UsageStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Usage.Summary())
}

func (h *Handlers) Providers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generation": h.Registry.ListGeneration(),
		"embedding":  h.Registry.ListEmbedding(),
	})
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondProviderError maps error kinds to HTTP statuses. Exhaustion
// includes the attempt log so callers can see what was tried.
func respondProviderError(w http.ResponseWriter, err error) {
	var exhausted *fallback.ExhaustedError
	if errors.As(err, &exhausted) {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":    "all_providers_exhausted",
			"message":  exhausted.Error(),
			"attempts": exhausted.Attempts,
		})
		return
	}

	var ce *provider.CallError
	if !errors.As(err, &ce) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch ce.Kind {
	case provider.KindInvalidArgument:
		status = http.StatusBadRequest
	case provider.KindRateLimited:
		status = http.StatusTooManyRequests
	case provider.KindTimeout:
		status = http.StatusGatewayTimeout
	case provider.KindUpstream, provider.KindMalformed, provider.KindNoResult:
		status = http.StatusBadGateway
	}

	respondJSON(w, status, map[string]string{
		"error":   string(ce.Kind),
		"message": err.Error(),
	})
}
