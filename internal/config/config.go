package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ArxivMind service.
type Config struct {
	Port      int
	Version   string
	Content   ContentConfig
	Providers ProvidersConfig
	Fallback  FallbackConfig
	Retrieval RetrievalConfig
	Store     StoreConfig
	Retention RetentionConfig
	Arxiv     ArxivConfig
	Telemetry TelemetryConfig
}

type ContentConfig struct {
	TruncateBudget int // characters of input kept per request
}

type ProvidersConfig struct {
	OpenRouterAPIKey string
	HFToken          string
	OpenAIAPIKey     string
	OllamaEndpoint   string
}

type FallbackConfig struct {
	// Ordered "driver/model" specs tried per generation request.
	GenerationChain []string
	// Ordered embedding driver names tried per embed request.
	EmbeddingChain []string
	AttemptTimeout time.Duration
	MaxOutbound    int64
}

type RetrievalConfig struct {
	TopK int
}

type StoreConfig struct {
	Kind        string // memory, sqlite, pgvector
	SQLitePath  string
	PgvectorURL string
	Dimensions  int
}

type RetentionConfig struct {
	MaxAge   time.Duration // zero disables the janitor
	Interval time.Duration
}

type ArxivConfig struct {
	RedisAddr string // empty disables the response cache
	CacheTTL  time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("ARXIVMIND_PORT", 8080),
		Version: envStr("ARXIVMIND_VERSION", "2.0.0"),
		Content: ContentConfig{
			TruncateBudget: envInt("ARXIVMIND_TRUNCATE_BUDGET", 32_000),
		},
		Providers: ProvidersConfig{
			OpenRouterAPIKey: envStr("OPENROUTER_API_KEY", ""),
			HFToken:          envStr("HF_TOKEN", ""),
			OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
			OllamaEndpoint:   envStr("OLLAMA_ENDPOINT", "http://localhost:11434"),
		},
		Fallback: FallbackConfig{
			GenerationChain: envList("ARXIVMIND_GENERATION_CHAIN",
				"openrouter/mistralai/mistral-small-3.1-24b-instruct:free",
				"openrouter/anthropic/claude-3-haiku",
				"huggingface/facebook/bart-large-cnn",
			),
			EmbeddingChain: envList("ARXIVMIND_EMBEDDING_CHAIN", "huggingface", "ollama"),
			AttemptTimeout: envDuration("ARXIVMIND_ATTEMPT_TIMEOUT", 60*time.Second),
			MaxOutbound:    int64(envInt("ARXIVMIND_MAX_OUTBOUND", 32)),
		},
		Retrieval: RetrievalConfig{
			TopK: envInt("ARXIVMIND_RETRIEVAL_TOP_K", 5),
		},
		Store: StoreConfig{
			Kind:        envStr("ARXIVMIND_STORE", "memory"),
			SQLitePath:  envStr("ARXIVMIND_SQLITE_PATH", "arxivmind.db"),
			PgvectorURL: envStr("ARXIVMIND_PGVECTOR_URL", ""),
			Dimensions:  envInt("ARXIVMIND_EMBED_DIMENSIONS", 384),
		},
		Retention: RetentionConfig{
			MaxAge:   envDuration("ARXIVMIND_RETENTION_MAX_AGE", 0),
			Interval: envDuration("ARXIVMIND_RETENTION_INTERVAL", time.Hour),
		},
		Arxiv: ArxivConfig{
			RedisAddr: envStr("ARXIVMIND_REDIS_ADDR", ""),
			CacheTTL:  envDuration("ARXIVMIND_ARXIV_CACHE_TTL", 15*time.Minute),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "arxivmind"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list.
func envList(key string, fallback ...string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
