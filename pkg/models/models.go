// Package models defines the shared data types for the ArxivMind core.
package models

import "time"

// ── Operations ──────────────────────────────────────────────

// Operation identifies what the caller wants done with the submitted text.
type Operation string

const (
	OpAnalyze  Operation = "analyze"
	OpCompare  Operation = "compare"
	OpInsights Operation = "insights"
	OpReview   Operation = "review"
	OpSearch   Operation = "search"
)

// Valid reports whether the operation is one the service knows.
func (op Operation) Valid() bool {
	switch op {
	case OpAnalyze, OpCompare, OpInsights, OpReview, OpSearch:
		return true
	}
	return false
}

// ── Requests ────────────────────────────────────────────────

// Request is one user submission. Immutable once constructed.
type Request struct {
	RawText          string    `json:"raw_text"`
	Title            string    `json:"title,omitempty"`
	Operation        Operation `json:"operation"`
	ModelPreferences []string  `json:"model_preferences,omitempty"` // "driver/model" specs, tried in order
}

// NormalizedContent is Request text trimmed to a provider budget.
// Derived once, never mutated.
type NormalizedContent struct {
	Text           string `json:"text"`
	OriginalLength int    `json:"original_length"`
	Truncated      bool   `json:"truncated"`
}

// ── Provider calls ──────────────────────────────────────────

// AttemptStatus is the outcome of a single provider call.
type AttemptStatus string

const (
	AttemptSuccess     AttemptStatus = "success"
	AttemptTimeout     AttemptStatus = "timeout"
	AttemptRateLimited AttemptStatus = "rate_limited"
	AttemptUpstream    AttemptStatus = "upstream_error"
	AttemptMalformed   AttemptStatus = "malformed_response"
)

// ProviderCallAttempt is one entry in the diagnostic attempt log. The
// ordered sequence of attempts for a request is returned to the caller
// on both success and exhaustion.
type ProviderCallAttempt struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Status    AttemptStatus `json:"status"`
	LatencyMs int64         `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
}

// TokenUsage is the token accounting a provider reports for one call.
type TokenUsage struct {
	InputTokens   int64   `json:"input_tokens"`
	OutputTokens  int64   `json:"output_tokens"`
	TotalTokens   int64   `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Generation is the successful result of one provider generation call.
type Generation struct {
	Provider string     `json:"provider"`
	Model    string     `json:"model"`
	Content  string     `json:"content"`
	Usage    TokenUsage `json:"usage"`
}

// ── Retrieval ───────────────────────────────────────────────

// RetrievalMatch is one nearest-neighbor hit, ordered by descending
// similarity in the sequences this service returns.
type RetrievalMatch struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"similarity_score"`
	Snippet    string  `json:"snippet"`
}

// VectorDoc is a stored chunk with its embedding.
type VectorDoc struct {
	ID        string            `json:"id"`
	PaperID   string            `json:"paper_id,omitempty"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Vector    []float64         `json:"-"`
	Seq       int64             `json:"-"` // insertion order, assigned by the store
	CreatedAt time.Time         `json:"created_at"`
}

// SearchResult pairs a stored doc with its similarity to the query vector.
type SearchResult struct {
	Doc   VectorDoc `json:"doc"`
	Score float64   `json:"score"`
}

// ── Results ─────────────────────────────────────────────────

// ResultPayload is the assembled response for one request. Read-only.
type ResultPayload struct {
	Operation     Operation             `json:"operation"`
	GeneratedText string                `json:"generated_text"`
	Matches       []RetrievalMatch      `json:"retrieval_matches"`
	Attempts      []ProviderCallAttempt `json:"attempts"`
}

// AnalysisResult wraps a ResultPayload with the parsed section map the
// analyze operation produces.
type AnalysisResult struct {
	Result    *ResultPayload    `json:"result"`
	Sections  map[string]string `json:"sections,omitempty"`
	Usage     TokenUsage        `json:"usage"`
	Timestamp time.Time         `json:"timestamp"`
}

// ── Ingestion ───────────────────────────────────────────────

// IngestDocument is one text document submitted for ingestion. PDF text
// extraction happens upstream; this service only sees extracted text.
type IngestDocument struct {
	ID       string            `json:"id,omitempty"`
	Title    string            `json:"title,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestRequest carries documents plus optional chunking overrides.
type IngestRequest struct {
	Documents    []IngestDocument `json:"documents"`
	ChunkSize    int              `json:"chunk_size,omitempty"`
	ChunkOverlap int              `json:"chunk_overlap,omitempty"`
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	DocumentsProcessed int `json:"documents_processed"`
	ChunksCreated      int `json:"chunks_created"`
	VectorsStored      int `json:"vectors_stored"`
}

// ── arXiv ───────────────────────────────────────────────────

// ArxivPaper is one entry from the arXiv Atom API.
type ArxivPaper struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Abstract   string    `json:"abstract"`
	Published  time.Time `json:"published"`
	Updated    time.Time `json:"updated"`
	PDFURL     string    `json:"pdf_url"`
	URL        string    `json:"url"`
	Categories []string  `json:"categories"`
}

// ── Usage tracking ──────────────────────────────────────────

// UsageSummary is the accumulated token/cost accounting for this process.
type UsageSummary struct {
	Requests     int64              `json:"requests"`
	TotalTokens  int64              `json:"total_tokens"`
	TotalCostUSD float64            `json:"total_cost_usd"`
	ByOperation  map[string]float64 `json:"by_operation"`
	ByModel      map[string]float64 `json:"by_model"`
	ByProvider   map[string]float64 `json:"by_provider"`
}
