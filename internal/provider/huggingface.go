package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
)

const hfKind = "huggingface"

const hfDefaultBaseURL = "https://api-inference.huggingface.co/models"

// HFGenerationDriver implements GenerationDriver against the Hugging Face
// Inference API. Works with both text-generation and summarization
// pipelines (the hosted BART models answer with summary_text).
type HFGenerationDriver struct {
	token        string
	baseURL      string
	maxNewTokens int
	client       *http.Client
}

// HFGenerationOption configures the Hugging Face generation driver.
type HFGenerationOption func(*HFGenerationDriver)

// WithHFGenerationBaseURL sets a custom inference endpoint.
func WithHFGenerationBaseURL(url string) HFGenerationOption {
	return func(d *HFGenerationDriver) { d.baseURL = url }
}

// WithHFMaxNewTokens caps generated length per call.
func WithHFMaxNewTokens(n int) HFGenerationOption {
	return func(d *HFGenerationDriver) { d.maxNewTokens = n }
}

// NewHFGenerationDriver creates a Hugging Face generation driver.
func NewHFGenerationDriver(token string, opts ...HFGenerationOption) *HFGenerationDriver {
	d := &HFGenerationDriver{
		token:        token,
		baseURL:      hfDefaultBaseURL,
		maxNewTokens: 1024,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *HFGenerationDriver) Kind() string { return hfKind }

type hfGenerateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// hfGenerateItem covers the two pipeline output shapes we route to.
type hfGenerateItem struct {
	GeneratedText string `json:"generated_text"`
	SummaryText   string `json:"summary_text"`
}

// Generate posts the prompt to the given hosted model.
func (d *HFGenerationDriver) Generate(ctx context.Context, model, prompt string) (*models.Generation, error) {
	body, err := json.Marshal(hfGenerateRequest{
		Inputs:     prompt,
		Parameters: map[string]any{"max_new_tokens": d.maxNewTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransport(hfKind, model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(hfKind, model, err)
	}
	// 503 while the model loads is the common transient case here.
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(hfKind, model, resp.StatusCode, respBody)
	}

	var items []hfGenerateItem
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, malformed(hfKind, model, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(items) == 0 {
		return nil, malformed(hfKind, model, fmt.Errorf("empty response array"))
	}
	text := items[0].GeneratedText
	if text == "" {
		text = items[0].SummaryText
	}
	if text == "" {
		return nil, malformed(hfKind, model, fmt.Errorf("no generated text in response"))
	}

	return &models.Generation{
		Provider: hfKind,
		Model:    model,
		Content:  text,
		// The inference API reports no token usage; left zero.
	}, nil
}

// HealthCheck generates against a small hosted model to validate the token.
func (d *HFGenerationDriver) HealthCheck(ctx context.Context) error {
	_, err := d.Generate(ctx, "facebook/bart-large-cnn", "health check")
	return err
}

// ── Embeddings ──────────────────────────────────────────────

// HFEmbeddingDriver implements EmbeddingDriver via the feature-extraction
// pipeline. Default model is sentence-transformers/all-MiniLM-L6-v2 (384d),
// the same encoder the original deployment embedded papers with.
type HFEmbeddingDriver struct {
	token      string
	model      string
	baseURL    string
	dimensions int
	batchSize  int
	client     *http.Client
}

// HFEmbeddingOption configures the Hugging Face embedding driver.
type HFEmbeddingOption func(*HFEmbeddingDriver)

// WithHFEmbeddingBaseURL sets a custom inference endpoint.
func WithHFEmbeddingBaseURL(url string) HFEmbeddingOption {
	return func(d *HFEmbeddingDriver) { d.baseURL = url }
}

// WithHFEmbeddingBatchSize sets the max texts per Embed call.
func WithHFEmbeddingBatchSize(size int) HFEmbeddingOption {
	return func(d *HFEmbeddingDriver) { d.batchSize = size }
}

// NewHFEmbeddingDriver creates a Hugging Face embedding driver.
func NewHFEmbeddingDriver(token, model string, opts ...HFEmbeddingOption) *HFEmbeddingDriver {
	dims := 384
	switch model {
	case "", "sentence-transformers/all-MiniLM-L6-v2":
		model = "sentence-transformers/all-MiniLM-L6-v2"
		dims = 384
	case "sentence-transformers/all-mpnet-base-v2":
		dims = 768
	}

	d := &HFEmbeddingDriver{
		token:      token,
		model:      model,
		baseURL:    hfDefaultBaseURL,
		dimensions: dims,
		batchSize:  256,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *HFEmbeddingDriver) Kind() string      { return hfKind }
func (d *HFEmbeddingDriver) Dimensions() int   { return d.dimensions }
func (d *HFEmbeddingDriver) MaxBatchSize() int { return d.batchSize }

type hfEmbedRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed generates one vector per input text.
func (d *HFEmbeddingDriver) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > d.batchSize {
		return nil, fmt.Errorf("batch size %d exceeds max %d", len(texts), d.batchSize)
	}

	body, err := json.Marshal(hfEmbedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/"+d.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransport(hfKind, d.model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(hfKind, d.model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(hfKind, d.model, resp.StatusCode, respBody)
	}

	var vectors [][]float64
	if err := json.Unmarshal(respBody, &vectors); err != nil {
		return nil, malformed(hfKind, d.model, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(vectors) != len(texts) {
		return nil, malformed(hfKind, d.model, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}
	return vectors, nil
}

// HealthCheck verifies the token by embedding a test string.
func (d *HFEmbeddingDriver) HealthCheck(ctx context.Context) error {
	_, err := d.Embed(ctx, []string{"health check"})
	return err
}
