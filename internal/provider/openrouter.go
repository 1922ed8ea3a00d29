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

const openRouterKind = "openrouter"

// OpenRouterDriver implements GenerationDriver against OpenRouter's
// chat-completions API. OpenRouter fronts many hosted models, so the
// model is chosen per call rather than per driver.
type OpenRouterDriver struct {
	apiKey    string
	endpoint  string // defaults to https://openrouter.ai/api/v1
	referer   string
	title     string
	system    string
	maxTokens int
	client    *http.Client
}

// OpenRouterOption configures the OpenRouter driver.
type OpenRouterOption func(*OpenRouterDriver)

// WithOpenRouterEndpoint sets a custom API base URL (e.g. for proxies).
func WithOpenRouterEndpoint(endpoint string) OpenRouterOption {
	return func(d *OpenRouterDriver) { d.endpoint = endpoint }
}

// WithOpenRouterMaxTokens caps completion length per call.
func WithOpenRouterMaxTokens(n int) OpenRouterOption {
	return func(d *OpenRouterDriver) { d.maxTokens = n }
}

// WithOpenRouterSystemPrompt overrides the system message sent with
// every completion.
func WithOpenRouterSystemPrompt(s string) OpenRouterOption {
	return func(d *OpenRouterDriver) { d.system = s }
}

// NewOpenRouterDriver creates an OpenRouter generation driver. The key
// is held by this instance only; there is no process-wide credential.
func NewOpenRouterDriver(apiKey string, opts ...OpenRouterOption) *OpenRouterDriver {
	d := &OpenRouterDriver{
		apiKey:    apiKey,
		endpoint:  "https://openrouter.ai/api/v1",
		referer:   "https://arxivmind.com",
		title:     "ArxivMind",
		system:    "You are a research assistant specializing in analyzing academic papers.",
		maxTokens: 3000,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *OpenRouterDriver) Kind() string { return openRouterKind }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type openRouterResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends one chat completion to the given OpenRouter model.
func (d *OpenRouterDriver) Generate(ctx context.Context, model, prompt string) (*models.Generation, error) {
	messages := make([]chatMessage, 0, 2)
	if d.system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: d.system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(openRouterRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   d.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := d.endpoint + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("HTTP-Referer", d.referer)
	req.Header.Set("X-Title", d.title)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransport(openRouterKind, model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(openRouterKind, model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(openRouterKind, model, resp.StatusCode, respBody)
	}

	var out openRouterResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, malformed(openRouterKind, model, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, malformed(openRouterKind, model, fmt.Errorf("empty completion"))
	}

	return &models.Generation{
		Provider: openRouterKind,
		Model:    model,
		Content:  out.Choices[0].Message.Content,
		Usage: models.TokenUsage{
			InputTokens:   out.Usage.PromptTokens,
			OutputTokens:  out.Usage.CompletionTokens,
			TotalTokens:   out.Usage.TotalTokens,
			EstimatedCost: estimateCost(model, out.Usage.PromptTokens, out.Usage.CompletionTokens),
		},
	}, nil
}

// HealthCheck verifies the API key by listing available models.
func (d *OpenRouterDriver) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return classifyTransport(openRouterKind, "", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(openRouterKind, "", resp.StatusCode, nil)
	}
	return nil
}

// Known cost per 1K tokens (USD) for the models the default routing
// chain uses. Unknown models fall back to a flat average.
var defaultCosts = map[string]struct{ in, out float64 }{
	"openai/gpt-4o-mini":                         {0.00015, 0.0006},
	"anthropic/claude-3-haiku":                   {0.00025, 0.00125},
	"google/gemini-pro":                          {0.0005, 0.0015},
	"meta-llama/llama-3.1-8b-instruct":           {0.00018, 0.00018},
	"mistralai/mistral-small-3.1-24b-instruct:free": {0, 0},
}

func estimateCost(model string, inTokens, outTokens int64) float64 {
	if c, ok := defaultCosts[model]; ok {
		return float64(inTokens)/1000*c.in + float64(outTokens)/1000*c.out
	}
	return float64(inTokens+outTokens) / 1000 * 0.0005
}
