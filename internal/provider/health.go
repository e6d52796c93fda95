package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthChecker probes a backend without spending tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// httpChecker issues a GET against a listing endpoint and treats any 2xx
// reply as healthy.
type httpChecker struct {
	url    string
	header http.Header
	client *http.Client
}

// HealthCheck implements HealthChecker.
func (h *httpChecker) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, v := range h.header {
		req.Header[k] = v
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// NewHealthChecker returns a zero-cost checker for the configured backend, or
// nil when the backend has none. Anthropic clients check themselves, so the
// client is consulted first.
func NewHealthChecker(cfg *Config, client any) HealthChecker {
	if hc, ok := client.(HealthChecker); ok {
		return hc
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}

	switch cfg.Backend {
	case BackendOllama:
		return &httpChecker{
			url:    strings.TrimRight(cfg.Ollama.Host, "/") + "/api/tags",
			client: httpClient,
		}
	case BackendOpenAI:
		base := cfg.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &httpChecker{
			url:    strings.TrimRight(base, "/") + "/models",
			header: http.Header{"Authorization": {"Bearer " + cfg.OpenAI.APIKey}},
			client: httpClient,
		}
	default:
		return nil
	}
}
