// Package tools defines the Tool interface and the course tools the language
// model can invoke during a query. Each tool also satisfies Eino's
// tool.InvokableTool interface so it can be registered with Eino agents and
// graphs without an adapter.
package tools

import (
	"context"
	"encoding/json"

	"github.com/54b3r/coursebot-go/internal/llm"
)

// Source is one provenance record surfaced to the user next to an answer.
type Source struct {
	// Title is the course title, optionally suffixed with " - Lesson N".
	Title string `json:"title"`

	// Link is the lesson or course URL. Empty means unknown.
	Link string `json:"link"`
}

// MarshalJSON renders an empty Link as null.
func (s Source) MarshalJSON() ([]byte, error) {
	out := struct {
		Title string  `json:"title"`
		Link  *string `json:"link"`
	}{Title: s.Title}
	if s.Link != "" {
		out.Link = &s.Link
	}
	return json.Marshal(out)
}

// Result is the outcome of one tool execution.
type Result struct {
	// Text is returned to the model verbatim as the tool result.
	Text string

	// Sources lists the provenance of Text, in output order.
	Sources []Source
}

// Tool is the interface every model-invocable tool satisfies. Tools hold no
// per-call state and are safe for concurrent use.
type Tool interface {
	// Name returns the unique tool name the model calls.
	Name() string

	// Definition returns the schema sent to the model.
	Definition() llm.ToolDefinition

	// Execute runs the tool with the model-supplied JSON input. In-band
	// outcomes (no results, unknown course) are reported through Result.Text;
	// a non-nil error means the call itself failed.
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}
