package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig holds connection settings for the Anthropic Messages API.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string

	// BaseURL overrides the default API endpoint (proxies, gateways).
	BaseURL string
}

// AnthropicClient implements Client on top of the Anthropic Go SDK.
type AnthropicClient struct {
	// client is the underlying SDK client.
	client anthropic.Client
}

// NewAnthropicClient constructs an AnthropicClient. SDK-level retries are
// disabled: a failed call surfaces to the caller on the first attempt.
func NewAnthropicClient(cfg *AnthropicConfig) (*AnthropicClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: anthropic api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{client: anthropic.NewClient(opts...)}, nil
}

// CreateMessage sends req to the Messages API and converts the reply.
func (c *AnthropicClient) CreateMessage(ctx context.Context, req *Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages:    toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}
	if req.ToolChoice == ToolChoiceAuto {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm: anthropic messages request failed: %w", err)
	}

	return fromAnthropicMessage(msg), nil
}

// HealthCheck lists the available models, which costs no tokens.
func (c *AnthropicClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("llm: anthropic model listing failed: %w", err)
	}
	return nil
}

// toAnthropicMessages converts provider-neutral turns into SDK params.
func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, b.Input, b.Name))
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Text, b.IsError))
			}
		}
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

// toAnthropicTools converts tool definitions into SDK tool params.
func toAnthropicTools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		props := make(map[string]any, len(d.Parameters))
		for _, p := range d.Parameters {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			props[p.Name] = prop
		}

		tool := anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: props,
				Required:   d.Required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return out
}

// fromAnthropicMessage converts an SDK reply. Block types other than text
// and tool_use are dropped.
func fromAnthropicMessage(msg *anthropic.Message) *Response {
	resp := &Response{StopReason: StopReason(msg.StopReason)}
	for _, b := range msg.Content {
		switch b.Type {
		case string(BlockText):
			resp.Content = append(resp.Content, TextBlock(b.Text))
		case string(BlockToolUse):
			resp.Content = append(resp.Content, ContentBlock{
				Type:  BlockToolUse,
				ID:    b.ID,
				Name:  b.Name,
				Input: b.Input,
			})
		}
	}
	return resp
}
