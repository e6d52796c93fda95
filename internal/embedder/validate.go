package embedder

import (
	"log/slog"
	"strings"
)

// chatModelFragments identify chat/completion models which are not suitable
// for embedding.
var chatModelFragments = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"claude",
	"gemini-",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, frag := range chatModelFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// CheckForSearch is a pre-flight check run before the Qdrant store is opened.
// It returns the Validate error for broken configuration and logs a warning
// when the model looks like a chat model, since its vectors would not match
// the ones the collection was indexed with.
func CheckForSearch(log *slog.Logger, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if looksLikeChatModel(cfg.Model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", cfg.Model),
			slog.String("hint", "use the model the course collections were indexed with, e.g. nomic-embed-text"),
		)
	}
	return nil
}
