// Package config provides YAML-based configuration for coursebot.
// Configuration is loaded with a layered precedence: defaults, then the YAML
// file, then env vars. Environment variables always win.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. COURSEBOT_CONFIG environment variable
//  3. ~/.coursebot/config.yaml
//  4. ./coursebot.yaml
//
// If no file is found the system runs entirely from env vars. A path given
// with --config must exist.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the LLM chat model provider.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the query embedding backend.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Search configures retrieval and the local corpus.
	Search SearchConfig `yaml:"search"`

	// Session configures conversation history.
	Session SessionConfig `yaml:"session"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds LLM chat model settings.
type ModelConfig struct {
	// Provider selects the backend: anthropic, ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Azure     AzureConfig     `yaml:"azure"`
	Ark       ArkConfig       `yaml:"ark"`
	Gemini    GeminiConfig    `yaml:"gemini"`
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Prefer env var ANTHROPIC_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Claude model id.
	Model string `yaml:"model"`
	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure, gemini).
	Provider string `yaml:"provider"`
	// Model must match the model the collections were indexed with.
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname. Setting it selects the Qdrant store.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// ContentCollection holds course chunks.
	ContentCollection string `yaml:"content_collection"`
	// CatalogCollection holds one point per course.
	CatalogCollection string `yaml:"catalog_collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	TLS    bool   `yaml:"tls"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	// MaxResults caps the chunks returned per search.
	MaxResults int `yaml:"max_results"`
	// Corpus is a JSON or YAML course file served from memory when no
	// Qdrant host is configured.
	Corpus string `yaml:"corpus"`
}

// SessionConfig holds conversation history settings.
type SessionConfig struct {
	// MaxHistory is the number of exchanges kept in the prompt.
	MaxHistory int `yaml:"max_history"`
	// MaxHistoryTokens caps the estimated size of the rendered history.
	MaxHistoryTokens int `yaml:"max_history_tokens"`
	// DBPath is the SQLite database path. Set to "memory" to keep sessions
	// in process memory.
	DBPath string `yaml:"db_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var COURSEBOT_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the sustained per-IP request rate on /api/query.
	RateLimit float64 `yaml:"rate_limit"`
	// QueryTimeout bounds a single query, e.g. "90s".
	QueryTimeout string `yaml:"query_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"ANTHROPIC_API_KEY", func(c *Config) string { return c.Model.Anthropic.APIKey }},
	{"ANTHROPIC_MODEL", func(c *Config) string { return c.Model.Anthropic.Model }},
	{"ANTHROPIC_BASE_URL", func(c *Config) string { return c.Model.Anthropic.BaseURL }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.Model.OpenAI.BaseURL }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_CONTENT_COLLECTION", func(c *Config) string { return c.Qdrant.ContentCollection }},
	{"QDRANT_CATALOG_COLLECTION", func(c *Config) string { return c.Qdrant.CatalogCollection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"COURSEBOT_MAX_RESULTS", func(c *Config) string { return intStr(c.Search.MaxResults) }},
	{"COURSEBOT_CORPUS", func(c *Config) string { return c.Search.Corpus }},
	{"COURSEBOT_MAX_HISTORY", func(c *Config) string { return intStr(c.Session.MaxHistory) }},
	{"COURSEBOT_MAX_HISTORY_TOKENS", func(c *Config) string { return intStr(c.Session.MaxHistoryTokens) }},
	{"COURSEBOT_SESSION_DB", func(c *Config) string { return c.Session.DBPath }},
	{"COURSEBOT_HOST", func(c *Config) string { return c.Server.Host }},
	{"COURSEBOT_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"COURSEBOT_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"COURSEBOT_RATE_LIMIT", func(c *Config) string { return floatStr(c.Server.RateLimit) }},
	{"COURSEBOT_QUERY_TIMEOUT", func(c *Config) string { return c.Server.QueryTimeout }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load applies a YAML config file to the environment without overwriting
// variables that are already set, and returns the path it loaded ("" when no
// file was found). An explicit path must exist. Unknown keys are rejected so
// a misspelt setting fails loudly instead of being ignored.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	cfg, err := decodeFile(path)
	if err != nil {
		return "", err
	}

	applied := 0
	for _, m := range envMapping {
		v := m.value(cfg)
		if v == "" || os.Getenv(m.envKey) != "" {
			continue
		}
		if err := os.Setenv(m.envKey, v); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return path, nil
}

func decodeFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveConfigPath picks the config file: the explicit flag, then
// COURSEBOT_CONFIG, then ~/.coursebot/config.yaml, then ./coursebot.yaml.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return explicit, nil
	}

	candidates := []string{os.Getenv("COURSEBOT_CONFIG")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".coursebot", "config.yaml"))
	}
	candidates = append(candidates, "coursebot.yaml")

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// EnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not a positive integer.
func EnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

// EnvFloat is the float64 counterpart of EnvInt.
func EnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 4, 64), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
