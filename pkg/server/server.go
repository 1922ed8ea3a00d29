// Package server provides the public entry point for initializing the
// ArxivMind service. It wires the provider drivers, the vector store,
// the fallback orchestrator, and the HTTP surface from configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arxivmind/arxivmind/internal/analyze"
	"github.com/arxivmind/arxivmind/internal/api"
	"github.com/arxivmind/arxivmind/internal/api/handlers"
	"github.com/arxivmind/arxivmind/internal/arxiv"
	"github.com/arxivmind/arxivmind/internal/config"
	"github.com/arxivmind/arxivmind/internal/fallback"
	"github.com/arxivmind/arxivmind/internal/ingest"
	"github.com/arxivmind/arxivmind/internal/provider"
	"github.com/arxivmind/arxivmind/internal/retention"
	"github.com/arxivmind/arxivmind/internal/retrieval"
	"github.com/arxivmind/arxivmind/internal/telemetry"
	"github.com/arxivmind/arxivmind/internal/usage"
	"github.com/arxivmind/arxivmind/internal/vectorstore"
	"github.com/arxivmind/arxivmind/pkg/contracts"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Server holds the initialized ArxivMind service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush
	// telemetry and close the vector store.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	telemetryShutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	reg := buildRegistry(cfg)

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	tracker := usage.NewTracker()
	orch := fallback.New(reg,
		fallback.WithAttemptTimeout(cfg.Fallback.AttemptTimeout),
		fallback.WithMaxOutbound(cfg.Fallback.MaxOutbound),
		fallback.WithUsageTracker(tracker),
	)

	candidates, err := fallback.ParseCandidates(cfg.Fallback.GenerationChain)
	if err != nil {
		return nil, fmt.Errorf("parse generation chain: %w", err)
	}

	retriever := retrieval.New(orch, store, cfg.Fallback.EmbeddingChain)

	analyzer := analyze.New(orch, candidates,
		analyze.WithRetriever(retriever),
		analyze.WithBudget(cfg.Content.TruncateBudget),
		analyze.WithTopK(cfg.Retrieval.TopK),
	)

	ingester := ingest.NewIngester(orch, cfg.Fallback.EmbeddingChain, store, ingest.DefaultChunkerConfig())

	arxivClient := buildArxivClient(cfg)

	stopJanitor := func() {}
	if cfg.Retention.MaxAge > 0 {
		janitor := retention.NewJanitor(store, cfg.Retention.Interval, cfg.Retention.MaxAge)
		janitorCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			janitor.Start(janitorCtx)
			close(done)
		}()
		stopJanitor = func() {
			cancel()
			<-done
		}
	}

	h := &handlers.Handlers{
		Analyzer:  analyzer,
		Retriever: retriever,
		Ingester:  ingester,
		Arxiv:     arxivClient,
		Usage:     tracker,
		Registry:  reg,
		Store:     store,
		TopK:      cfg.Retrieval.TopK,
	}

	shutdown := func(ctx context.Context) error {
		stopJanitor()
		if closeStore != nil {
			closeStore()
		}
		return telemetryShutdown(ctx)
	}

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// buildRegistry registers every provider driver the configuration has
// credentials for. Keyless deployments still get the HF public API.
func buildRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry()

	if cfg.Providers.OpenRouterAPIKey != "" {
		reg.RegisterGeneration("openrouter", provider.NewOpenRouterDriver(cfg.Providers.OpenRouterAPIKey))
	}

	reg.RegisterGeneration("huggingface", provider.NewHFGenerationDriver(cfg.Providers.HFToken))
	reg.RegisterEmbedding("huggingface", provider.NewHFEmbeddingDriver(cfg.Providers.HFToken, ""))

	if cfg.Providers.OpenAIAPIKey != "" {
		reg.RegisterEmbedding("openai", provider.NewOpenAIEmbeddingDriver(cfg.Providers.OpenAIAPIKey, ""))
	}
	if cfg.Providers.OllamaEndpoint != "" {
		reg.RegisterEmbedding("ollama", provider.NewOllamaEmbeddingDriver(cfg.Providers.OllamaEndpoint, ""))
	}

	return reg
}

func buildStore(ctx context.Context, cfg *config.Config) (contracts.VectorStoreDriver, func(), error) {
	switch cfg.Store.Kind {
	case "memory", "":
		return vectorstore.NewMemoryStore(), nil, nil
	case "sqlite":
		s, err := vectorstore.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "pgvector":
		s, err := vectorstore.NewPgvectorStore(ctx, cfg.Store.PgvectorURL, cfg.Store.Dimensions)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store kind: %s", cfg.Store.Kind)
	}
}

func buildArxivClient(cfg *config.Config) *arxiv.Client {
	if cfg.Arxiv.RedisAddr == "" {
		return arxiv.NewClient()
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Arxiv.RedisAddr})
	log.Info().Str("addr", cfg.Arxiv.RedisAddr).Msg("arXiv response cache enabled")
	return arxiv.NewClient(arxiv.WithCache(arxiv.NewCache(rdb, cfg.Arxiv.CacheTTL)))
}
