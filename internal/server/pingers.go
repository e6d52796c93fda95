package server

import (
	"context"
	"fmt"

	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/logging"
)

// HealthChecker is a zero-cost probe such as a model listing endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// LLMPinger probes the LLM backend for GET /api/ready.
type LLMPinger struct {
	// healthCheck is preferred when the backend has one.
	healthCheck HealthChecker
	// client is probed with a one-token request otherwise.
	client llm.Client
	// model is sent with the fallback probe.
	model string
	// name identifies the backend in readiness responses (e.g. "anthropic").
	name string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(client llm.Client, hc HealthChecker, model, name string) *LLMPinger {
	return &LLMPinger{healthCheck: hc, client: client, model: model, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping uses the zero-cost health check when available, and otherwise sends a
// single-token request, which consumes tokens.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}

	logging.FromContext(ctx).Warn("pinger: no health endpoint, probing with a generate call",
		"backend", p.name,
	)
	resp, err := p.client.CreateMessage(ctx, &llm.Request{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []llm.Message{llm.UserMessage(llm.TextBlock("ping"))},
	})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// QdrantPinger probes the Qdrant vector store.
type QdrantPinger struct {
	store HealthChecker
}

// NewQdrantPinger constructs a QdrantPinger for the given store.
func NewQdrantPinger(store HealthChecker) *QdrantPinger {
	return &QdrantPinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
