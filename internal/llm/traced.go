package llm

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// tracedClient reports each call to the Eino callback handlers (Langfuse in
// production). Eino chat models already do this themselves, so only clients
// outside Eino need wrapping.
type tracedClient struct {
	next Client
	name string
}

// Traced wraps next so its calls reach globally registered Eino callbacks
// under the given component type name.
func Traced(next Client, name string) Client {
	return &tracedClient{next: next, name: name}
}

// CreateMessage implements Client.
func (t *tracedClient) CreateMessage(ctx context.Context, req *Request) (*Response, error) {
	ctx = callbacks.EnsureRunInfo(ctx, t.name, components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: toEinoMessages(req),
		Tools:    EinoToolInfos(req.Tools),
		Config: &model.Config{
			Model:       req.Model,
			MaxTokens:   req.MaxTokens,
			Temperature: float32(req.Temperature),
		},
	})

	resp, err := t.next.CreateMessage(ctx, req)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: toEinoReply(resp)})
	return resp, nil
}

// toEinoReply renders a Response as a single assistant message.
func toEinoReply(resp *Response) *schema.Message {
	return toEinoMessages(&Request{Messages: []Message{AssistantMessage(resp.Content...)}})[0]
}
