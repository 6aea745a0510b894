// Package app assembles the application: it initializes Genkit with the
// configured AI provider, opens the vector store backend, and wires the
// document pipeline components together.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/index"
	"github.com/askdoc/askdoc/internal/log"
	"github.com/askdoc/askdoc/internal/pipeline"
)

// App is the application container. Built by Setup, released by Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Index    *index.Index
	Pipeline *pipeline.Pipeline

	// pool is non-nil only for the postgres store backend.
	pool         *pgxpool.Pool
	traceCleanup func()
}

// Close releases all resources held by the application.
func (a *App) Close() error {
	a.Logger.Debug("shutting down")

	if a.pool != nil {
		a.pool.Close()
		a.Logger.Debug("database pool closed")
	}
	if a.traceCleanup != nil {
		a.traceCleanup()
	}
	return nil
}

// GeneratorConfig derives the generation parameters from the loaded
// configuration.
func (a *App) generatorConfig() pipeline.GeneratorConfig {
	return pipeline.GeneratorConfig{
		ModelName:   a.Config.FullModelName(),
		Temperature: a.Config.Temperature,
		MaxTokens:   a.Config.MaxTokens,
		Timeout:     time.Duration(a.Config.GenerateTimeoutSeconds) * time.Second,
	}
}

// Ask runs one question through the pipeline.
func (a *App) Ask(ctx context.Context, query string) *pipeline.State {
	return a.Pipeline.Run(ctx, query)
}
