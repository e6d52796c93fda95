// Package tracing wires optional Langfuse tracing into Eino's global callback
// handlers. Every Eino chat model call, and every client wrapped with
// llm.Traced, is then reported as a Langfuse generation.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is the self-hosted Langfuse default.
const defaultHost = "http://localhost:3000"

// Config holds Langfuse credentials.
type Config struct {
	Host      string
	PublicKey string
	SecretKey string
}

// ConfigFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY.
func ConfigFromEnv() Config {
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}
	return Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// Setup registers the Langfuse handler globally when cfg is enabled. The
// returned flush function must be called before exit so buffered traces are
// sent; it is a no-op when tracing is disabled.
func Setup(cfg Config, log *slog.Logger) (flush func(), enabled bool) {
	if !cfg.Enabled() {
		log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
		return func() {}, false
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      cfg.Host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
		Name:      "coursebot",
	})
	callbacks.AppendGlobalHandlers(handler)

	log.Info("langfuse tracing enabled", slog.String("host", cfg.Host))
	return flusher, true
}
