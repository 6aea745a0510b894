package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/askdoc/askdoc/internal/log"
)

// ErrGeneration indicates the language model call failed or timed out.
var ErrGeneration = errors.New("generation failed")

// GeneratorConfig carries the model parameters for answer generation.
type GeneratorConfig struct {
	ModelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Generator produces a grounded answer from retained passages with a single
// model call. When retrieval produced nothing it returns the fixed refusal
// without calling the model at all.
type Generator struct {
	g      *genkit.Genkit
	cfg    GeneratorConfig
	logger log.Logger
}

// NewGenerator wires a generator to a Genkit instance with a registered
// model matching cfg.ModelName.
func NewGenerator(g *genkit.Genkit, cfg GeneratorConfig, logger log.Logger) *Generator {
	return &Generator{g: g, cfg: cfg, logger: logger}
}

// Generate returns the raw answer text for the query.
func (gen *Generator) Generate(ctx context.Context, query string, passages []RetrievedPassage) (string, error) {
	if len(passages) == 0 {
		gen.logger.Debug("no passages retained, refusing without model call")
		return RefusalResponse, nil
	}

	if gen.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gen.cfg.Timeout)
		defer cancel()
	}

	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.cfg.ModelName),
		ai.WithSystem(SystemPrompt),
		ai.WithPrompt(ragPrompt(passages, query)),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     gen.cfg.Temperature,
			MaxOutputTokens: gen.cfg.MaxTokens,
		}),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: model call timed out after %s", ErrGeneration, gen.cfg.Timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: model returned an empty answer", ErrGeneration)
	}
	return text, nil
}
