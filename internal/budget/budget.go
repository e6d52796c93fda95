// Package budget estimates token counts and trims conversation history so the
// history block appended to the system prompt stays within a fixed budget.
// Backends use different tokenizers, so estimation uses a conservative
// character heuristic: 1 token ≈ 4 characters.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// perMessageOverhead approximates the role marker and separators each
	// history line costs.
	perMessageOverhead = 4

	// DefaultMaxHistoryTokens is the default history budget in tokens.
	DefaultMaxHistoryTokens = 2000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for msgs,
// summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += perMessageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory drops the oldest messages until the estimate fits maxTokens.
// A leading user/assistant pair is dropped together so the history never
// starts with an orphaned answer. maxTokens <= 0 disables trimming.
func TrimHistory(history []*schema.Message, maxTokens int) []*schema.Message {
	if maxTokens <= 0 {
		return history
	}
	for len(history) > 0 && EstimateMessages(history) > maxTokens {
		if len(history) >= 2 && history[0].Role == schema.User && history[1].Role == schema.Assistant {
			history = history[2:]
			continue
		}
		history = history[1:]
	}
	return history
}
