// Package provider selects and constructs the language-model client at
// runtime. Anthropic is served by the native Messages API client; Ollama,
// OpenAI, Azure OpenAI, Ark and Gemini are served through Eino chat models.
package provider

import (
	"fmt"
	"strings"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendAnthropic selects the Anthropic Messages API (default).
	BackendAnthropic Backend = "anthropic"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects the Volcengine Ark model runtime.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderAnthropic holds Anthropic settings.
type ProviderAnthropic struct {
	// APIKey is read from ANTHROPIC_API_KEY.
	APIKey string
	// Model is read from ANTHROPIC_MODEL.
	Model string
	// BaseURL optionally overrides the API endpoint (ANTHROPIC_BASE_URL).
	BaseURL string
}

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (OLLAMA_HOST).
	Host string
	// Model is the Ollama model tag (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is read from OPENAI_API_KEY.
	APIKey string
	// Model is read from OPENAI_MODEL.
	Model string
	// BaseURL optionally points at an OpenAI-compatible endpoint (OPENAI_BASE_URL).
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is read from AZURE_OPENAI_API_KEY.
	APIKey string
	// Endpoint is the resource endpoint (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderArk holds Volcengine Ark settings.
type ProviderArk struct {
	// APIKey is read from ARK_API_KEY.
	APIKey string
	// Model is the Ark endpoint or model id (ARK_MODEL).
	Model string
	// BaseURL optionally overrides the region endpoint (ARK_BASE_URL).
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is read from GOOGLE_API_KEY.
	APIKey string
	// Model is read from GEMINI_MODEL.
	Model string
}

// Config holds all provider-level configuration. Only the block matching
// Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Anthropic   ProviderAnthropic
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini
}

// Validate reports the first missing setting for the selected backend,
// naming the environment variable that supplies it.
func (c *Config) Validate() error {
	missing := func(env string) error {
		return fmt.Errorf("provider: %s is required for %s backend", env, c.Backend)
	}

	switch c.Backend {
	case BackendAnthropic:
		if c.Anthropic.APIKey == "" {
			return missing("ANTHROPIC_API_KEY")
		}
		if c.Anthropic.Model == "" {
			return missing("ANTHROPIC_MODEL")
		}
	case BackendOllama:
		if c.Ollama.Host == "" {
			return missing("OLLAMA_HOST")
		}
		if c.Ollama.Model == "" {
			return missing("OLLAMA_MODEL")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return missing("OPENAI_API_KEY")
		}
		if c.OpenAI.Model == "" {
			return missing("OPENAI_MODEL")
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return missing("AZURE_OPENAI_API_KEY")
		}
		if c.AzureOpenAI.Endpoint == "" {
			return missing("AZURE_OPENAI_ENDPOINT")
		}
		if c.AzureOpenAI.Deployment == "" {
			return missing("AZURE_OPENAI_DEPLOYMENT")
		}
	case BackendArk:
		if c.Ark.APIKey == "" {
			return missing("ARK_API_KEY")
		}
		if c.Ark.Model == "" {
			return missing("ARK_MODEL")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return missing("GOOGLE_API_KEY")
		}
		if c.Gemini.Model == "" {
			return missing("GEMINI_MODEL")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q, valid values: anthropic, ollama, openai, azure, ark, gemini", c.Backend)
	}
	return nil
}

// ModelName returns the model or deployment id for the selected backend.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendAnthropic:
		return c.Anthropic.Model
	case BackendOllama:
		return c.Ollama.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendArk:
		return c.Ark.Model
	case BackendGemini:
		return c.Gemini.Model
	default:
		return ""
	}
}

// isAzureReasoningModel reports whether an Azure deployment name refers to an
// o-series or codex model, which reject temperature and max_tokens.
func isAzureReasoningModel(deployment string) bool {
	d := strings.ToLower(deployment)
	if strings.HasPrefix(d, "codex") {
		return true
	}
	return len(d) >= 2 && d[0] == 'o' && d[1] >= '0' && d[1] <= '9'
}
