package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Google AI Studio key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-004").
	Model string
	// Dimensions optionally truncates the output vectors (0 = model default).
	Dimensions int
}

// GeminiEmbedder implements vectorstore.Embedder using the Gemini
// EmbedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	config *genai.EmbedContentConfig
}

// NewGeminiEmbedder constructs a GeminiEmbedder.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create client: %w", err)
	}

	var ec *genai.EmbedContentConfig
	if cfg.Dimensions > 0 {
		dims := int32(cfg.Dimensions) //nolint:gosec // dimensions are bounded
		ec = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}
	return &GeminiEmbedder{client: client, model: cfg.Model, config: ec}, nil
}

// Embed converts a batch of texts into their corresponding embeddings.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, e.config)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: request failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
