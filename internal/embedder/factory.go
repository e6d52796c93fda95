package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/coursebot-go/internal/vectorstore"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGeminiModel = "text-embedding-004"
)

// Config selects and configures an embedding backend.
type Config struct {
	// Backend is one of ollama, openai, azure or gemini.
	Backend string
	// Model is the embedding model or Azure deployment name.
	Model string
	// Endpoint is the backend base URL. Empty means the backend default.
	Endpoint string
	// APIKey authenticates against hosted backends.
	APIKey string
	// Dimensions optionally truncates vectors (0 = model default).
	Dimensions int
	// APIVersion is the Azure OpenAI API version.
	APIVersion string
	// KeepAlive is forwarded to Ollama as keep_alive.
	KeepAlive string
}

// ConfigFromEnv resolves the embedding configuration, inheriting credentials
// from the chat provider when embedding-specific overrides are not set.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER, else MODEL_PROVIDER when it names an embedding
//     backend, else ollama
//  2. EMBEDDING_MODEL overrides the default model for the resolved backend
//  3. EMBEDDING_API_KEY overrides the inherited API key
//  4. EMBEDDING_ENDPOINT overrides the inherited endpoint
//  5. EMBEDDING_DIMENSIONS truncates the output vectors
func ConfigFromEnv() Config {
	backend := os.Getenv("EMBEDDING_PROVIDER")
	if backend == "" {
		switch p := os.Getenv("MODEL_PROVIDER"); p {
		case "openai", "azure", "gemini":
			backend = p
		default:
			// Anthropic and Ark have no embeddings API.
			backend = "ollama"
		}
	}

	cfg := Config{
		Backend:    backend,
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
	}

	switch backend {
	case "ollama":
		cfg.Model = orDefault(cfg.Model, defaultOllamaModel)
		cfg.Endpoint = orDefault(cfg.Endpoint, getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"))
		cfg.KeepAlive = os.Getenv("OLLAMA_KEEP_ALIVE")
	case "openai":
		cfg.Model = orDefault(cfg.Model, defaultOpenAIModel)
		cfg.Endpoint = orDefault(cfg.Endpoint, getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"))
		cfg.APIKey = orDefault(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
	case "azure":
		cfg.Model = orDefault(cfg.Model, defaultOpenAIModel)
		cfg.Endpoint = orDefault(cfg.Endpoint, os.Getenv("AZURE_OPENAI_ENDPOINT"))
		cfg.APIKey = orDefault(cfg.APIKey, os.Getenv("AZURE_OPENAI_API_KEY"))
	case "gemini":
		cfg.Model = orDefault(cfg.Model, defaultGeminiModel)
		cfg.APIKey = orDefault(cfg.APIKey, os.Getenv("GOOGLE_API_KEY"))
	}
	return cfg
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	switch c.Backend {
	case "ollama":
		return nil
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case "azure":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		if c.Endpoint == "" {
			return fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
	case "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: gemini requires GOOGLE_API_KEY or EMBEDDING_API_KEY")
		}
	default:
		return fmt.Errorf("embedder: unknown backend %q, valid values: ollama, openai, azure, gemini", c.Backend)
	}
	return nil
}

// New constructs the embedder described by cfg.
func New(ctx context.Context, cfg Config) (vectorstore.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "ollama":
		return NewOllamaEmbedder(&OllamaConfig{Host: cfg.Endpoint, Model: cfg.Model, KeepAlive: cfg.KeepAlive}), nil
	case "openai":
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case "azure":
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Azure:      true,
			APIVersion: cfg.APIVersion,
		}), nil
	default:
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	}
}

// NewFromEnv constructs an embedder from ConfigFromEnv.
func NewFromEnv(ctx context.Context) (vectorstore.Embedder, error) {
	return New(ctx, ConfigFromEnv())
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	return orDefault(os.Getenv(key), fallback)
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
