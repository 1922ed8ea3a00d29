package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const ollamaKind = "ollama"

// OllamaEmbeddingDriver implements EmbeddingDriver for a local Ollama
// instance. Supports nomic-embed-text (768d), mxbai-embed-large (1024d),
// all-minilm (384d).
type OllamaEmbeddingDriver struct {
	endpoint   string // e.g. http://localhost:11434
	model      string
	dimensions int
	batchSize  int
	client     *http.Client
}

// OllamaEmbeddingOption configures the Ollama embedding driver.
type OllamaEmbeddingOption func(*OllamaEmbeddingDriver)

// WithOllamaBatchSize sets the max texts per Embed call.
func WithOllamaBatchSize(size int) OllamaEmbeddingOption {
	return func(d *OllamaEmbeddingDriver) { d.batchSize = size }
}

// NewOllamaEmbeddingDriver creates an Ollama embedding driver. An empty
// model selects nomic-embed-text.
func NewOllamaEmbeddingDriver(endpoint, model string, opts ...OllamaEmbeddingOption) *OllamaEmbeddingDriver {
	if model == "" {
		model = "nomic-embed-text"
	}

	dims := 768
	switch model {
	case "nomic-embed-text":
		dims = 768
	case "mxbai-embed-large":
		dims = 1024
	case "all-minilm", "all-minilm:l6-v2":
		dims = 384
	}

	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	d := &OllamaEmbeddingDriver{
		endpoint:   endpoint,
		model:      model,
		dimensions: dims,
		batchSize:  512,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *OllamaEmbeddingDriver) Kind() string      { return ollamaKind }
func (d *OllamaEmbeddingDriver) Dimensions() int   { return d.dimensions }
func (d *OllamaEmbeddingDriver) MaxBatchSize() int { return d.batchSize }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed generates vector embeddings. Ollama supports batch via /api/embed.
func (d *OllamaEmbeddingDriver) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > d.batchSize {
		return nil, fmt.Errorf("batch size %d exceeds max %d", len(texts), d.batchSize)
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: d.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransport(ollamaKind, d.model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ollamaKind, d.model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(ollamaKind, d.model, resp.StatusCode, respBody)
	}

	var result ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, malformed(ollamaKind, d.model, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(result.Embeddings) != len(texts) {
		return nil, malformed(ollamaKind, d.model, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
	}
	return result.Embeddings, nil
}

// HealthCheck verifies Ollama is reachable and the model is available.
func (d *OllamaEmbeddingDriver) HealthCheck(ctx context.Context) error {
	_, err := d.Embed(ctx, []string{"health check"})
	return err
}
