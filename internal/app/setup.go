package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/askdoc/askdoc/db"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/index"
	"github.com/askdoc/askdoc/internal/log"
	"github.com/askdoc/askdoc/internal/observability"
	"github.com/askdoc/askdoc/internal/pipeline"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be set up before Genkit initialization so the span
	// processor is registered on the TracerProvider Genkit uses.
	if cfg.Trace.Enabled {
		a.traceCleanup = provideTracing(ctx, cfg, logger)
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, pool, err := provideStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	a.Index = index.New(store, embedder, index.Config{
		Collection: cfg.CollectionName,
		Dimensions: cfg.EmbedderDimensions,
		RateLimit:  cfg.EmbedRateLimit,
	}, logger)

	retriever := pipeline.NewRetriever(a.Index, cfg.TopK, cfg.SimilarityThreshold, logger)
	generator := pipeline.NewGenerator(g, a.generatorConfig(), logger)
	a.Pipeline = pipeline.New(retriever, generator, logger)

	return a, nil
}

// provideTracing registers the OTLP span exporter and returns its cleanup.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Trace.Endpoint,
		Environment: cfg.Trace.Environment,
		ServiceName: cfg.Trace.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports googleai (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Debug("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Debug("initialized genkit with openai provider", "model", cfg.ModelName)

	default: // googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		logger.Debug("initialized genkit with googleai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - googleai: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // googleai
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideStore opens the configured vector store backend. The returned pool
// is non-nil only for postgres; the caller owns its lifetime.
func provideStore(ctx context.Context, cfg *config.Config, logger log.Logger) (index.Store, *pgxpool.Pool, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := provideDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return index.NewPgxStore(pool, logger), pool, nil

	default: // chromem
		store, err := index.NewChromemStore(cfg.ChromemPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening chromem store at %q: %w", cfg.ChromemPath, err)
		}
		return store, nil, nil
	}
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool with
// pgvector type support.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
