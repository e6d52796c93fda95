// Package audit writes one structured log line per coursebot command so an
// operator can see which configuration a run resolved. Secret values are
// reduced to "set" or "unset" and never reach the log.
package audit

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// auditedEnv groups the environment variables recorded at command start by
// the component that reads them. Order is preserved in the log line.
var auditedEnv = [][]string{
	// chat model
	{"MODEL_PROVIDER", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "OLLAMA_HOST", "OLLAMA_MODEL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_DEPLOYMENT", "ARK_API_KEY", "ARK_MODEL", "GOOGLE_API_KEY", "GEMINI_MODEL"},
	// embeddings and course store
	{"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "QDRANT_HOST", "QDRANT_PORT",
		"QDRANT_CONTENT_COLLECTION", "QDRANT_CATALOG_COLLECTION", "QDRANT_API_KEY", "COURSEBOT_CORPUS"},
	// conversation and server
	{"COURSEBOT_MAX_RESULTS", "COURSEBOT_MAX_HISTORY", "COURSEBOT_SESSION_DB",
		"COURSEBOT_HOST", "COURSEBOT_PORT", "COURSEBOT_API_KEY"},
	// observability
	{"LOG_LEVEL", "LOG_FORMAT", "LANGFUSE_HOST", "LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY"},
}

// LogCommandStart records the command, its config file and the audited
// environment. Unset operational keys are skipped; secrets always report
// presence so a missing credential is visible.
func LogCommandStart(ctx context.Context, log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}
	for _, group := range auditedEnv {
		for _, key := range group {
			val := os.Getenv(key)
			if val == "" && !isSecret(key) {
				continue
			}
			attrs = append(attrs, slog.String(key, SanitiseKey(key, val)))
		}
	}
	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// isSecret reports whether key names a credential.
func isSecret(key string) bool {
	return strings.HasSuffix(key, "_API_KEY") ||
		strings.HasSuffix(key, "_SECRET_KEY") ||
		strings.HasSuffix(key, "_PUBLIC_KEY")
}

// SanitiseKey returns the loggable form of an environment value: presence
// only for secrets, URLs with their userinfo password masked, otherwise the
// value itself. Empty values become "unset".
func SanitiseKey(key, value string) string {
	switch {
	case value == "":
		return "unset"
	case isSecret(key):
		return "set"
	case strings.Contains(value, "://"):
		if u, err := url.Parse(value); err == nil {
			return u.Redacted()
		}
	}
	return value
}

// sanitiseConfigPath shortens the home directory to "~".
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
