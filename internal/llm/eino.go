package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient implements Client on top of an Eino tool-calling chat model,
// which covers the Ollama, OpenAI, Azure OpenAI, Ark and Gemini backends.
// The model name is fixed when the chat model is constructed, so
// Request.Model is not forwarded.
type EinoClient struct {
	// chat is the underlying Eino model.
	chat model.ToolCallingChatModel

	// omitSampling drops temperature and max tokens from every call.
	omitSampling bool
}

// EinoOption configures an EinoClient.
type EinoOption func(*EinoClient)

// WithoutSampling stops temperature and max tokens from being forwarded.
// Reasoning models (o-series, codex) reject both.
func WithoutSampling() EinoOption {
	return func(c *EinoClient) { c.omitSampling = true }
}

// NewEinoClient wraps the given chat model.
func NewEinoClient(chat model.ToolCallingChatModel, opts ...EinoOption) (*EinoClient, error) {
	if chat == nil {
		return nil, fmt.Errorf("llm: eino chat model must not be nil")
	}
	c := &EinoClient{chat: chat}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateMessage binds the requested tools (if any) and runs one Generate call.
func (c *EinoClient) CreateMessage(ctx context.Context, req *Request) (*Response, error) {
	chat := c.chat
	if len(req.Tools) > 0 {
		bound, err := c.chat.WithTools(EinoToolInfos(req.Tools))
		if err != nil {
			return nil, fmt.Errorf("llm: failed to bind tools: %w", err)
		}
		chat = bound
	}

	var opts []model.Option
	if !c.omitSampling {
		opts = append(opts,
			model.WithTemperature(float32(req.Temperature)),
			model.WithMaxTokens(req.MaxTokens),
		)
	}
	if req.ToolChoice == ToolChoiceAuto && len(req.Tools) > 0 {
		opts = append(opts, model.WithToolChoice(schema.ToolChoiceAllowed))
	}

	out, err := chat.Generate(ctx, toEinoMessages(req), opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: eino generate failed: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("llm: eino generate returned nil message")
	}

	return fromEinoMessage(out), nil
}

// EinoToolInfos converts tool definitions into Eino tool metadata.
func EinoToolInfos(defs []ToolDefinition) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(defs))
	for _, d := range defs {
		params := make(map[string]*schema.ParameterInfo, len(d.Parameters))
		for _, p := range d.Parameters {
			params[p.Name] = &schema.ParameterInfo{
				Type:     schema.DataType(p.Type),
				Desc:     p.Description,
				Required: d.IsRequired(p.Name),
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        d.Name,
			Desc:        d.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

// toEinoMessages flattens the block-structured conversation into Eino's
// role-per-message shape. Tool results become individual tool messages.
func toEinoMessages(req *Request) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, schema.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		var text []string
		var calls []schema.ToolCall
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				text = append(text, b.Text)
			case BlockToolUse:
				calls = append(calls, schema.ToolCall{
					ID:   b.ID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      b.Name,
						Arguments: string(b.Input),
					},
				})
			case BlockToolResult:
				msgs = append(msgs, schema.ToolMessage(b.Text, b.ToolUseID))
			}
		}

		switch {
		case m.Role == RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(strings.Join(text, "\n"), calls))
		case len(text) > 0:
			msgs = append(msgs, schema.UserMessage(strings.Join(text, "\n")))
		}
	}
	return msgs
}

// fromEinoMessage converts an Eino reply into a Response.
func fromEinoMessage(out *schema.Message) *Response {
	resp := &Response{StopReason: StopEndTurn}
	if out.ResponseMeta != nil && out.ResponseMeta.FinishReason == "length" {
		resp.StopReason = StopMaxTokens
	}

	if out.Content != "" || len(out.ToolCalls) == 0 {
		resp.Content = append(resp.Content, TextBlock(out.Content))
	}

	for _, call := range out.ToolCalls {
		input := json.RawMessage(call.Function.Arguments)
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		resp.Content = append(resp.Content, ContentBlock{
			Type:  BlockToolUse,
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}
	if len(out.ToolCalls) > 0 {
		resp.StopReason = StopToolUse
	}

	return resp
}
