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

const openAIKind = "openai"

// OpenAIEmbeddingDriver implements EmbeddingDriver for OpenAI's embedding
// API. Supports text-embedding-3-small (1536d), text-embedding-3-large
// (3072d), and text-embedding-ada-002 (1536d).
type OpenAIEmbeddingDriver struct {
	apiKey     string
	model      string
	endpoint   string // defaults to https://api.openai.com/v1/embeddings
	dimensions int
	batchSize  int
	client     *http.Client
}

// OpenAIEmbeddingOption configures the OpenAI embedding driver.
type OpenAIEmbeddingOption func(*OpenAIEmbeddingDriver)

// WithOpenAIEndpoint sets a custom API endpoint (e.g. for proxies).
func WithOpenAIEndpoint(endpoint string) OpenAIEmbeddingOption {
	return func(d *OpenAIEmbeddingDriver) { d.endpoint = endpoint }
}

// WithOpenAIBatchSize sets the max texts per Embed call.
func WithOpenAIBatchSize(size int) OpenAIEmbeddingOption {
	return func(d *OpenAIEmbeddingDriver) { d.batchSize = size }
}

// NewOpenAIEmbeddingDriver creates an OpenAI embedding driver. An empty
// model selects text-embedding-3-small.
func NewOpenAIEmbeddingDriver(apiKey, model string, opts ...OpenAIEmbeddingOption) *OpenAIEmbeddingDriver {
	if model == "" {
		model = "text-embedding-3-small"
	}

	dims := 1536
	switch model {
	case "text-embedding-3-large":
		dims = 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		dims = 1536
	}

	d := &OpenAIEmbeddingDriver{
		apiKey:     apiKey,
		model:      model,
		endpoint:   "https://api.openai.com/v1/embeddings",
		dimensions: dims,
		batchSize:  2048,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *OpenAIEmbeddingDriver) Kind() string      { return openAIKind }
func (d *OpenAIEmbeddingDriver) Dimensions() int   { return d.dimensions }
func (d *OpenAIEmbeddingDriver) MaxBatchSize() int { return d.batchSize }

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates vector embeddings for a batch of texts.
func (d *OpenAIEmbeddingDriver) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > d.batchSize {
		return nil, fmt.Errorf("batch size %d exceeds max %d", len(texts), d.batchSize)
	}

	body, err := json.Marshal(openAIEmbedRequest{Input: texts, Model: d.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransport(openAIKind, d.model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(openAIKind, d.model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(openAIKind, d.model, resp.StatusCode, respBody)
	}

	var result openAIEmbedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, malformed(openAIKind, d.model, fmt.Errorf("unmarshal response: %w", err))
	}
	if result.Error != nil {
		return nil, malformed(openAIKind, d.model, fmt.Errorf("%s (%s)", result.Error.Message, result.Error.Type))
	}
	if len(result.Data) != len(texts) {
		return nil, malformed(openAIKind, d.model, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data)))
	}

	// Reorder by index
	vectors := make([][]float64, len(texts))
	for _, item := range result.Data {
		if item.Index < len(vectors) {
			vectors[item.Index] = item.Embedding
		}
	}
	return vectors, nil
}

// HealthCheck verifies the API key by embedding a test string.
func (d *OpenAIEmbeddingDriver) HealthCheck(ctx context.Context) error {
	_, err := d.Embed(ctx, []string{"health check"})
	return err
}
