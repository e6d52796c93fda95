package provider

import (
	"context"
	"fmt"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/54b3r/coursebot-go/internal/llm"
)

// newAnthropic constructs the native Anthropic Messages API client.
func newAnthropic(cfg *Config) (llm.Client, error) {
	return llm.NewAnthropicClient(&llm.AnthropicConfig{
		APIKey:  cfg.Anthropic.APIKey,
		BaseURL: cfg.Anthropic.BaseURL,
	})
}

// wrap adapts an Eino chat model constructor result into an llm.Client.
func wrap(chat model.ToolCallingChatModel, err error, backend Backend, opts ...llm.EinoOption) (llm.Client, error) {
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create %s chat model: %w", backend, err)
	}
	return llm.NewEinoClient(chat, opts...)
}

// newOllama constructs a client backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config) (llm.Client, error) {
	chat, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: cfg.Ollama.Host,
		Model:   cfg.Ollama.Model,
	})
	return wrap(chat, err, BackendOllama)
}

// newOpenAI constructs a client backed by the OpenAI API or any
// OpenAI-compatible endpoint.
func newOpenAI(ctx context.Context, cfg *Config) (llm.Client, error) {
	chat, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:   cfg.OpenAI.Model,
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	return wrap(chat, err, BackendOpenAI)
}

// newAzure constructs a client backed by Azure OpenAI Service.
func newAzure(ctx context.Context, cfg *Config) (llm.Client, error) {
	az := cfg.AzureOpenAI
	chat, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:      az.Deployment,
		APIKey:     az.APIKey,
		BaseURL:    az.Endpoint,
		ByAzure:    true,
		APIVersion: az.APIVersion,
		// Use the deployment name as-is: the default mapper strips dots and
		// colons, which breaks names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
	})

	var opts []llm.EinoOption
	if isAzureReasoningModel(az.Deployment) {
		opts = append(opts, llm.WithoutSampling())
	}
	return wrap(chat, err, BackendAzure, opts...)
}

// newArk constructs a client backed by the Volcengine Ark runtime.
func newArk(ctx context.Context, cfg *Config) (llm.Client, error) {
	chat, err := einoark.NewChatModel(ctx, &einoark.ChatModelConfig{
		Model:   cfg.Ark.Model,
		APIKey:  cfg.Ark.APIKey,
		BaseURL: cfg.Ark.BaseURL,
	})
	return wrap(chat, err, BackendArk)
}

// newGemini constructs a client backed by Google Gemini (AI Studio).
func newGemini(ctx context.Context, cfg *Config) (llm.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	chat, err := einogemini.NewChatModel(ctx, &einogemini.Config{
		Client: client,
		Model:  cfg.Gemini.Model,
	})
	return wrap(chat, err, BackendGemini)
}
