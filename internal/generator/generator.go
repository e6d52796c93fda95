// Package generator runs the two-round tool-calling exchange with the
// language model: one request offering the tools, then, if the model asked
// for tools, one follow-up request carrying the tool results and no tools.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/logging"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "claude-sonnet-4-20250514"

	// temperature is fixed at 0 for reproducible answers.
	temperature = 0

	// maxTokens bounds each model reply.
	maxTokens = 800
)

var (
	// ErrEmptyResponse is returned when the model replies with no content.
	ErrEmptyResponse = errors.New("generator: model returned no content")

	// ErrNoToolUse is returned when the model stops for tool use but the
	// reply carries no tool_use block.
	ErrNoToolUse = errors.New("generator: tool_use stop reason without tool_use blocks")
)

// ToolExecutor runs one named tool with the model-supplied input and returns
// the text to hand back to the model.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input json.RawMessage) (string, error)
}

// Config holds the dependencies required to construct a Generator.
type Config struct {
	// Client is the language-model backend.
	Client llm.Client

	// Model is the model id sent with every request. Defaults to DefaultModel.
	Model string
}

// Generator holds no per-call state and is safe for concurrent use.
type Generator struct {
	client llm.Client
	model  string
}

// New constructs a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("generator: client must not be nil")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Generator{client: cfg.Client, model: cfg.Model}, nil
}

// Model returns the configured model id.
func (g *Generator) Model() string { return g.model }

// GenerateResponse answers query. history, when non-empty, is appended to the
// system prompt. Tools are offered only when defs is non-empty; tool calls
// are executed only when executor is non-nil.
func (g *Generator) GenerateResponse(ctx context.Context, query, history string, defs []llm.ToolDefinition, executor ToolExecutor) (string, error) {
	log := logging.FromContext(ctx)
	system := buildSystem(history)
	messages := []llm.Message{llm.UserMessage(llm.TextBlock(query))}

	req := &llm.Request{
		Model:       g.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
	}
	if len(defs) > 0 {
		req.Tools = defs
		req.ToolChoice = llm.ToolChoiceAuto
	}

	log.Debug("generator round 1", "model", g.model, "tools", len(defs), "history", history != "")
	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generator: initial request failed: %w", err)
	}

	if resp.StopReason != llm.StopToolUse {
		return firstText(resp)
	}
	if executor == nil {
		return leadingText(resp)
	}

	uses := resp.ToolUses()
	if len(uses) == 0 {
		return "", ErrNoToolUse
	}

	results := make([]llm.ContentBlock, 0, len(uses))
	for _, use := range uses {
		log.Debug("generator dispatching tool", "tool", use.Name, "id", use.ID)
		out, err := executor.Execute(ctx, use.Name, use.Input)
		if err != nil {
			return "", fmt.Errorf("generator: tool %s failed: %w", use.Name, err)
		}
		results = append(results, llm.ToolResultBlock(use.ID, out))
	}

	followUp := &llm.Request{
		Model:       g.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		System:      system,
		Messages: []llm.Message{
			messages[0],
			llm.AssistantMessage(resp.Content...),
			llm.UserMessage(results...),
		},
	}

	log.Debug("generator round 2", "tool_results", len(results))
	final, err := g.client.CreateMessage(ctx, followUp)
	if err != nil {
		return "", fmt.Errorf("generator: follow-up request failed: %w", err)
	}
	return firstText(final)
}

// firstText returns the text of the first text block, skipping any other
// block types that precede it.
func firstText(resp *llm.Response) (string, error) {
	if resp != nil {
		for _, b := range resp.Content {
			if b.Type == llm.BlockText {
				return b.Text, nil
			}
		}
	}
	return "", ErrEmptyResponse
}

// leadingText returns the text of the first block whatever its type. Used
// when tools were requested but nothing can execute them.
func leadingText(resp *llm.Response) (string, error) {
	if len(resp.Content) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Content[0].Text, nil
}
