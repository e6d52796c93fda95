// Package llm defines the provider-neutral request/response contract used to
// talk to a language model, plus adapters for the Anthropic Messages API and
// Eino tool-calling chat models. The generator layer depends only on [Client]
// so the concrete backend is chosen at startup by the provider factory.
package llm

import (
	"context"
	"encoding/json"
)

// Role identifies the author of a message in a request.
type Role string

const (
	// RoleUser marks a message sent on behalf of the human (or tool results).
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
)

// StopReason reports why the model stopped generating.
type StopReason string

const (
	// StopEndTurn means the model produced a complete answer.
	StopEndTurn StopReason = "end_turn"
	// StopToolUse means the model is requesting one or more tool calls.
	StopToolUse StopReason = "tool_use"
	// StopMaxTokens means the response was truncated at the token limit.
	StopMaxTokens StopReason = "max_tokens"
)

// BlockType tags a ContentBlock.
type BlockType string

const (
	// BlockText is plain model or user text.
	BlockText BlockType = "text"
	// BlockToolUse is a model request to invoke a tool.
	BlockToolUse BlockType = "tool_use"
	// BlockToolResult carries a tool's output back to the model.
	BlockToolResult BlockType = "tool_result"
)

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	// ToolChoiceNone sends no tool choice; used together with an empty tool list.
	ToolChoiceNone ToolChoice = ""
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoice = "auto"
)

// ContentBlock is one element of a message's ordered content.
type ContentBlock struct {
	// Type selects which of the remaining fields are meaningful.
	Type BlockType

	// Text is the block text (BlockText) or the tool output (BlockToolResult).
	Text string

	// ID is the tool-use identifier assigned by the model (BlockToolUse).
	ID string

	// Name is the requested tool name (BlockToolUse).
	Name string

	// Input is the raw JSON argument object for the tool (BlockToolUse).
	Input json.RawMessage

	// ToolUseID references the BlockToolUse this result answers (BlockToolResult).
	ToolUseID string

	// IsError marks a tool result as a failure report (BlockToolResult).
	IsError bool
}

// Message is a single conversational turn.
type Message struct {
	// Role is the author of the turn.
	Role Role

	// Content is the ordered list of blocks making up the turn.
	Content []ContentBlock
}

// Parameter describes a single tool input parameter.
type Parameter struct {
	// Name is the JSON property name.
	Name string

	// Type is the JSON schema type ("string", "integer", ...).
	Type string

	// Description is shown to the model.
	Description string
}

// ToolDefinition is the declarative schema of a tool exposed to the model.
type ToolDefinition struct {
	// Name is the unique tool name the model uses to request it.
	Name string

	// Description tells the model what the tool does and when to use it.
	Description string

	// Parameters lists the input properties in display order.
	Parameters []Parameter

	// Required names the parameters the model must always supply.
	Required []string
}

// IsRequired reports whether the named parameter is required.
func (d ToolDefinition) IsRequired(name string) bool {
	for _, r := range d.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Request is a single call to the model.
type Request struct {
	// Model is the model identifier.
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the response length.
	MaxTokens int

	// System is the system prompt. Empty means no system prompt.
	System string

	// Messages is the ordered conversation sent to the model.
	Messages []Message

	// Tools is the optional list of tools offered to the model.
	Tools []ToolDefinition

	// ToolChoice is the optional tool selection mode.
	ToolChoice ToolChoice
}

// Response is the model's reply to a Request.
type Response struct {
	// StopReason explains why generation stopped.
	StopReason StopReason

	// Content is the ordered list of returned blocks.
	Content []ContentBlock
}

// ToolUses returns the tool-use blocks of the response in order.
func (r *Response) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// Client sends a single request to a language model.
// Implementations must be safe to call from multiple goroutines.
type Client interface {
	// CreateMessage performs one model round-trip.
	CreateMessage(ctx context.Context, req *Request) (*Response, error)
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolResultBlock returns a tool-result block answering the given tool use.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Text: content}
}

// UserMessage returns a user turn made of the given blocks.
func UserMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// AssistantMessage returns an assistant turn made of the given blocks.
func AssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}
