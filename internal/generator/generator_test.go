package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/coursebot-go/internal/llm"
)

// scriptedClient replays responses in order and records every request.
type scriptedClient struct {
	responses []*llm.Response
	err       error
	requests  []*llm.Request
}

func (c *scriptedClient) CreateMessage(_ context.Context, req *llm.Request) (*llm.Response, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.requests) > len(c.responses) {
		return nil, errors.New("unexpected extra request")
	}
	return c.responses[len(c.requests)-1], nil
}

// execCall records one tool execution.
type execCall struct {
	name  string
	input string
}

// recordingExecutor returns a fixed result and records calls.
type recordingExecutor struct {
	result string
	err    error
	calls  []execCall
}

func (e *recordingExecutor) Execute(_ context.Context, name string, input json.RawMessage) (string, error) {
	e.calls = append(e.calls, execCall{name, string(input)})
	return e.result, e.err
}

var searchDefs = []llm.ToolDefinition{{
	Name:       "search_course_content",
	Parameters: []llm.Parameter{{Name: "query", Type: "string"}},
	Required:   []string{"query"},
}}

func textResponse(text string) *llm.Response {
	return &llm.Response{StopReason: llm.StopEndTurn, Content: []llm.ContentBlock{llm.TextBlock(text)}}
}

func toolUseResponse(ids ...string) *llm.Response {
	resp := &llm.Response{StopReason: llm.StopToolUse}
	for i, id := range ids {
		resp.Content = append(resp.Content, llm.ContentBlock{
			Type:  llm.BlockToolUse,
			ID:    id,
			Name:  "search_course_content",
			Input: json.RawMessage(`{"query":"q` + string(rune('1'+i)) + `"}`),
		})
	}
	return resp
}

func newGenerator(t *testing.T, c llm.Client) *Generator {
	t.Helper()
	g, err := New(Config{Client: c})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestGenerateResponse_NoToolUseSingleRound(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.Response{textResponse("This is a direct answer")}}
	exec := &recordingExecutor{}

	got, err := newGenerator(t, client).GenerateResponse(context.Background(), "Hello", "", searchDefs, exec)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "This is a direct answer" {
		t.Errorf("answer: got %q", got)
	}
	if len(client.requests) != 1 {
		t.Errorf("want 1 request, got %d", len(client.requests))
	}
	if len(exec.calls) != 0 {
		t.Errorf("executor must not run, got %d calls", len(exec.calls))
	}
}

func TestGenerateResponse_InitialRequestParameters(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.Response{textResponse("ok")}}
	if _, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, &recordingExecutor{}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := client.requests[0]
	if req.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model: got %q", req.Model)
	}
	if req.Temperature != 0 || req.MaxTokens != 800 {
		t.Errorf("temperature/max tokens: got %v/%d", req.Temperature, req.MaxTokens)
	}
	if req.ToolChoice != llm.ToolChoiceAuto || len(req.Tools) != 1 {
		t.Errorf("tools: got %d, choice %q", len(req.Tools), req.ToolChoice)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser || req.Messages[0].Content[0].Text != "Test" {
		t.Errorf("messages: got %+v", req.Messages)
	}
	if !strings.Contains(req.System, "One search per query") {
		t.Error("system prompt must limit searches")
	}
	if strings.Contains(req.System, "Previous conversation") {
		t.Error("no history must mean no history section")
	}
}

func TestGenerateResponse_HistoryInSystemPrompt(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.Response{textResponse("ok")}}
	history := "User: Previous question\nAssistant: Previous answer"
	if _, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", history, searchDefs, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.HasSuffix(client.requests[0].System, "\n\nPrevious conversation:\n"+history) {
		t.Errorf("history not appended: %q", client.requests[0].System)
	}
}

func TestGenerateResponse_NoDefinitionsOmitsTools(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.Response{textResponse("ok")}}
	if _, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", nil, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if client.requests[0].Tools != nil || client.requests[0].ToolChoice != llm.ToolChoiceNone {
		t.Errorf("tools must be omitted: %+v", client.requests[0])
	}
}

func TestGenerateResponse_ToolUseTwoRounds(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_123"),
		textResponse("This is the final answer after using the tool"),
	}}
	exec := &recordingExecutor{result: "[Test Course - Lesson 1]\nContent"}

	got, err := newGenerator(t, client).GenerateResponse(context.Background(), "What is MCP?", "", searchDefs, exec)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "This is the final answer after using the tool" {
		t.Errorf("answer: got %q", got)
	}

	if len(exec.calls) != 1 || exec.calls[0].name != "search_course_content" || exec.calls[0].input != `{"query":"q1"}` {
		t.Fatalf("unexpected executions: %+v", exec.calls)
	}
	if len(client.requests) != 2 {
		t.Fatalf("want 2 requests, got %d", len(client.requests))
	}

	first, second := client.requests[0], client.requests[1]
	if second.Tools != nil || second.ToolChoice != llm.ToolChoiceNone {
		t.Error("follow-up request must carry no tools and no tool choice")
	}
	if second.Model != first.Model || second.Temperature != first.Temperature ||
		second.MaxTokens != first.MaxTokens || second.System != first.System {
		t.Error("follow-up request must reuse model, temperature, max tokens and system")
	}

	msgs := second.Messages
	if len(msgs) != 3 {
		t.Fatalf("want 3 follow-up messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleUser || msgs[1].Role != llm.RoleAssistant || msgs[2].Role != llm.RoleUser {
		t.Errorf("roles: %s %s %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if msgs[1].Content[0].ID != "toolu_123" {
		t.Error("assistant turn must replay round-1 content")
	}
	result := msgs[2].Content[0]
	if result.Type != llm.BlockToolResult || result.ToolUseID != "toolu_123" || result.Text != exec.result {
		t.Errorf("tool result block: got %+v", result)
	}
}

func TestGenerateResponse_MultipleToolUsesAllExecuted(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("tool_1", "tool_2"),
		textResponse("Final answer"),
	}}
	exec := &recordingExecutor{result: "r"}

	got, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, exec)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Final answer" {
		t.Errorf("answer: got %q", got)
	}
	if len(exec.calls) != 2 || exec.calls[0].input != `{"query":"q1"}` || exec.calls[1].input != `{"query":"q2"}` {
		t.Errorf("tools must run in order: %+v", exec.calls)
	}

	results := client.requests[1].Messages[2].Content
	if len(results) != 2 || results[0].ToolUseID != "tool_1" || results[1].ToolUseID != "tool_2" {
		t.Errorf("results must merge into one user message: %+v", results)
	}
}

func TestGenerateResponse_NilExecutorReturnsFirstBlock(t *testing.T) {
	t.Parallel()

	resp := toolUseResponse("toolu_1")
	resp.Content = append([]llm.ContentBlock{llm.TextBlock("Let me search")}, resp.Content...)
	client := &scriptedClient{responses: []*llm.Response{resp}}

	got, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Let me search" {
		t.Errorf("answer: got %q", got)
	}
	if len(client.requests) != 1 {
		t.Errorf("want 1 request, got %d", len(client.requests))
	}
}

func TestGenerateResponse_ReturnsFirstTextBlock(t *testing.T) {
	t.Parallel()

	toolFirst := llm.ContentBlock{Type: llm.BlockToolUse, ID: "toolu_9", Name: "search_course_content", Input: json.RawMessage(`{}`)}

	t.Run("direct answer", func(t *testing.T) {
		t.Parallel()
		resp := &llm.Response{StopReason: llm.StopEndTurn, Content: []llm.ContentBlock{toolFirst, llm.TextBlock("MCP is a protocol.")}}
		got, err := newGenerator(t, &scriptedClient{responses: []*llm.Response{resp}}).GenerateResponse(context.Background(), "Test", "", searchDefs, &recordingExecutor{})
		if err != nil || got != "MCP is a protocol." {
			t.Fatalf("got (%q, %v)", got, err)
		}
	})

	t.Run("follow-up answer", func(t *testing.T) {
		t.Parallel()
		final := &llm.Response{StopReason: llm.StopEndTurn, Content: []llm.ContentBlock{toolFirst, llm.TextBlock("final")}}
		client := &scriptedClient{responses: []*llm.Response{toolUseResponse("t1"), final}}
		got, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, &recordingExecutor{result: "r"})
		if err != nil || got != "final" {
			t.Fatalf("got (%q, %v)", got, err)
		}
	})

	t.Run("no text block", func(t *testing.T) {
		t.Parallel()
		resp := &llm.Response{StopReason: llm.StopEndTurn, Content: []llm.ContentBlock{toolFirst}}
		_, err := newGenerator(t, &scriptedClient{responses: []*llm.Response{resp}}).GenerateResponse(context.Background(), "Test", "", nil, nil)
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("want ErrEmptyResponse, got %v", err)
		}
	})
}

func TestGenerateResponse_Errors(t *testing.T) {
	t.Parallel()

	t.Run("client error propagates", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("API rate limit exceeded")
		_, err := newGenerator(t, &scriptedClient{err: sentinel}).GenerateResponse(context.Background(), "Test", "", searchDefs, &recordingExecutor{})
		if !errors.Is(err, sentinel) {
			t.Fatalf("want sentinel, got %v", err)
		}
	})

	t.Run("tool use without blocks", func(t *testing.T) {
		t.Parallel()
		exec := &recordingExecutor{}
		client := &scriptedClient{responses: []*llm.Response{{StopReason: llm.StopToolUse}}}
		_, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, exec)
		if !errors.Is(err, ErrNoToolUse) {
			t.Fatalf("want ErrNoToolUse, got %v", err)
		}
		if len(exec.calls) != 0 {
			t.Error("executor must not run")
		}
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		client := &scriptedClient{responses: []*llm.Response{{StopReason: llm.StopEndTurn}}}
		_, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", nil, nil)
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("want ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("executor error propagates", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("store down")
		client := &scriptedClient{responses: []*llm.Response{toolUseResponse("t1")}}
		_, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, &recordingExecutor{err: sentinel})
		if !errors.Is(err, sentinel) {
			t.Fatalf("want sentinel, got %v", err)
		}
		if len(client.requests) != 1 {
			t.Error("no follow-up request after a tool failure")
		}
	})

	t.Run("follow-up error propagates", func(t *testing.T) {
		t.Parallel()
		client := &scriptedClient{responses: []*llm.Response{toolUseResponse("t1")}}
		_, err := newGenerator(t, client).GenerateResponse(context.Background(), "Test", "", searchDefs, &recordingExecutor{result: "r"})
		if err == nil || !strings.Contains(err.Error(), "unexpected extra request") {
			t.Fatalf("want follow-up failure, got %v", err)
		}
	})
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("nil client must be rejected")
	}
	g, err := New(Config{Client: &scriptedClient{}, Model: "claude-3-5-haiku-latest"})
	if err != nil || g.Model() != "claude-3-5-haiku-latest" {
		t.Errorf("custom model: %v %v", g, err)
	}
}
