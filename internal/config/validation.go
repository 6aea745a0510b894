package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// 0. Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and API key validation
	switch c.Provider {
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for provider %q\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	default:
		return fmt.Errorf("%w: %q is not supported, must be one of: googleai, ollama, openai",
			ErrInvalidProvider, c.Provider)
	}

	// 2. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// 3. Embedding configuration validation
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.EmbedderDimensions < 1 || c.EmbedderDimensions > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d",
			ErrInvalidEmbedderDimension, c.EmbedderDimensions)
	}

	// The pgvector schema declares vector(768); other dimensions need a
	// migration before the postgres backend can store them.
	if c.Store == StorePostgres && c.EmbedderDimensions != 768 {
		return fmt.Errorf("%w: postgres backend requires 768 dimensions, got %d",
			ErrInvalidEmbedderDimension, c.EmbedderDimensions)
	}

	// 4. Chunking configuration validation
	if c.ChunkSize < 1 || c.ChunkSize > 100000 {
		return fmt.Errorf("%w: must be between 1 and 100,000, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}

	// Overlap must leave room for forward progress within each chunk.
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: must be between 0 and chunk_size-1 (%d), got %d",
			ErrInvalidChunkOverlap, c.ChunkSize-1, c.ChunkOverlap)
	}

	// 5. Retrieval configuration validation
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.TopK)
	}

	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f",
			ErrInvalidThreshold, c.SimilarityThreshold)
	}

	if strings.TrimSpace(c.CollectionName) == "" {
		return fmt.Errorf("%w: collection_name cannot be empty", ErrInvalidCollectionName)
	}

	// 6. Store backend validation
	switch c.Store {
	case StoreChromem:
		if c.ChromemPath == "" {
			return fmt.Errorf("%w: chromem_path cannot be empty", ErrInvalidStore)
		}
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: must be between 1 and 65535, got %d",
				ErrInvalidPostgresPort, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
		}
		validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
		if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
			return fmt.Errorf("%w: postgres_ssl_mode %q is not valid, must be one of: %v",
				ErrInvalidStore, c.PostgresSSLMode, validSSLModes)
		}
	default:
		return fmt.Errorf("%w: %q is not supported, must be one of: chromem, postgres",
			ErrInvalidStore, c.Store)
	}

	return nil
}
