// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.askdoc/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model selection, temperature, max tokens, embedder
//   - Chunking: chunk size and overlap for document splitting
//   - Retrieval: top-K and similarity threshold
//   - Storage: chromem directory or PostgreSQL/pgvector connection
//   - Trace: optional OTLP span export
//
// Validation is eager: Load returns an error before any component is built
// when a value is out of range or an unknown option appears in the file.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrUnknownOption indicates the config file contains an unrecognized key.
	ErrUnknownOption = errors.New("unknown configuration option")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder dimension is out of range.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidThreshold indicates the similarity threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidCollectionName indicates the collection name is invalid.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrInvalidStore indicates the vector store backend is not supported.
	ErrInvalidStore = errors.New("invalid store backend")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
)

// Vector store backend identifiers used in Config.Store.
const (
	StoreChromem  = "chromem"
	StorePostgres = "postgres"
)

// TraceConfig configures the optional OTLP trace exporter.
type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration. Treat a loaded Config as
// immutable: components receive the values they need at construction time.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "googleai" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding configuration
	EmbedderModel      string  `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimensions int     `mapstructure:"embedder_dimensions" json:"embedder_dimensions"`
	EmbedRateLimit     float64 `mapstructure:"embed_rate_limit" json:"embed_rate_limit"` // batches per second during Build

	// Chunking configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval configuration
	TopK                int     `mapstructure:"top_k" json:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
	CollectionName      string  `mapstructure:"collection_name" json:"collection_name"`

	// Generation timeout in seconds (single LLM call budget)
	GenerateTimeoutSeconds int `mapstructure:"generate_timeout_seconds" json:"generate_timeout_seconds"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Vector store backend: "chromem" (default, embedded) or "postgres"
	Store       string `mapstructure:"store" json:"store"`
	ChromemPath string `mapstructure:"chromem_path" json:"chromem_path"`

	// PostgreSQL configuration (only used when store is "postgres")
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration
	Trace TraceConfig `mapstructure:"trace" json:"trace"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.askdoc/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".askdoc")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	return parse(v)
}

// parse unmarshals, rejects unknown file keys and validates eagerly.
// Split from Load so tests can drive it with a prepared viper instance.
func parse(v *viper.Viper) (*Config, error) {
	if err := checkUnknownKeys(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("generate_timeout_seconds", 60)

	// Embedding defaults
	v.SetDefault("embedder_model", "gemini-embedding-001")
	v.SetDefault("embedder_dimensions", 768)
	v.SetDefault("embed_rate_limit", 2.0)

	// Chunking defaults
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	// Retrieval defaults
	v.SetDefault("top_k", 5)
	v.SetDefault("similarity_threshold", 0.5)
	v.SetDefault("collection_name", "document_collection")

	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")

	// Store defaults (embedded chromem under the config directory)
	v.SetDefault("store", StoreChromem)
	v.SetDefault("chromem_path", defaultChromemPath())

	// PostgreSQL defaults (only consulted when store is "postgres")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "askdoc")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "askdoc")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Trace defaults
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.endpoint", "localhost:4318")
	v.SetDefault("trace.service_name", "askdoc")
	v.SetDefault("trace.environment", "dev")
}

func defaultChromemPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".askdoc/chromem"
	}
	return filepath.Join(home, ".askdoc", "chromem")
}

// bindEnvVariables binds environment variable overrides explicitly.
// API keys are NOT bound here:
//   - GEMINI_API_KEY is read directly by the Genkit googlegenai plugin
//   - OPENAI_API_KEY is read directly by the Genkit OpenAI plugin
//
// Validation checks their presence based on the selected provider.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "ASKDOC_PROVIDER")
	mustBind("model_name", "ASKDOC_MODEL_NAME")
	mustBind("embedder_model", "ASKDOC_EMBEDDER_MODEL")
	mustBind("ollama_host", "ASKDOC_OLLAMA_HOST")
	mustBind("store", "ASKDOC_STORE")
	mustBind("chromem_path", "ASKDOC_CHROMEM_PATH")
	mustBind("collection_name", "ASKDOC_COLLECTION_NAME")
	mustBind("postgres_host", "ASKDOC_POSTGRES_HOST")
	mustBind("postgres_port", "ASKDOC_POSTGRES_PORT")
	mustBind("postgres_user", "ASKDOC_POSTGRES_USER")
	mustBind("postgres_password", "ASKDOC_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "ASKDOC_POSTGRES_DB_NAME")
	mustBind("trace.enabled", "ASKDOC_TRACE_ENABLED")
	mustBind("trace.endpoint", "ASKDOC_TRACE_ENDPOINT")
}

// knownKeys is the closed set of options the config file may contain.
// Unknown keys are rejected at load time rather than silently ignored.
var knownKeys = map[string]bool{
	"provider":                 true,
	"model_name":               true,
	"temperature":              true,
	"max_tokens":               true,
	"generate_timeout_seconds": true,
	"embedder_model":           true,
	"embedder_dimensions":      true,
	"embed_rate_limit":         true,
	"chunk_size":               true,
	"chunk_overlap":            true,
	"top_k":                    true,
	"similarity_threshold":     true,
	"collection_name":          true,
	"ollama_host":              true,
	"store":                    true,
	"chromem_path":             true,
	"postgres_host":            true,
	"postgres_port":            true,
	"postgres_user":            true,
	"postgres_password":        true,
	"postgres_db_name":         true,
	"postgres_ssl_mode":        true,
	"trace.enabled":            true,
	"trace.endpoint":           true,
	"trace.service_name":       true,
	"trace.environment":        true,
}

func checkUnknownKeys(v *viper.Viper) error {
	for _, key := range v.AllKeys() {
		if !knownKeys[key] {
			return fmt.Errorf("%w: %q", ErrUnknownOption, key)
		}
	}
	return nil
}

// PostgresURL returns the connection string for the pgvector backend.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
