package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Anthropic ─────────────────────────────────────────────────────────
		{
			name: "anthropic/valid",
			cfg: Config{
				Backend:   BackendAnthropic,
				Anthropic: ProviderAnthropic{APIKey: "sk-ant-test", Model: DefaultAnthropicModel},
			},
		},
		{
			name:    "anthropic/missing api key",
			cfg:     Config{Backend: BackendAnthropic, Anthropic: ProviderAnthropic{Model: DefaultAnthropicModel}},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "anthropic/missing model",
			cfg:     Config{Backend: BackendAnthropic, Anthropic: ProviderAnthropic{APIKey: "sk-ant-test"}},
			wantErr: "ANTHROPIC_MODEL",
		},

		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3"},
			},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o"},
			},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o"}},
			wantErr: "OPENAI_API_KEY",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:     "key",
					Endpoint:   "https://my.openai.azure.com",
					Deployment: "gpt-4o",
					APIVersion: "2024-02-01",
				},
			},
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Deployment: "gpt-4o"},
			},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Endpoint: "https://my.openai.azure.com"},
			},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Ark ───────────────────────────────────────────────────────────────
		{
			name: "ark/valid",
			cfg: Config{
				Backend: BackendArk,
				Ark:     ProviderArk{APIKey: "ark-test", Model: "ep-2024"},
			},
		},
		{
			name:    "ark/missing model",
			cfg:     Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ark-test"}},
			wantErr: "ARK_MODEL",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-pro"}},
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name:    "gemini/missing model",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "AIza-test"}},
			wantErr: "GEMINI_MODEL",
		},

		// ── Unknown backend ───────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "bedrock"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODEL_PROVIDER", "ANTHROPIC_MODEL", "ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
	}

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendAnthropic {
		t.Errorf("backend: got %q, want anthropic", cfg.Backend)
	}
	if cfg.ModelName() != DefaultAnthropicModel {
		t.Errorf("model: got %q", cfg.ModelName())
	}
	if _, err := New(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("New without a key: got %v", err)
	}
}

func TestModelName(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Backend:     BackendAzure,
		AzureOpenAI: ProviderAzureOpenAI{Deployment: "gpt-4.1"},
	}
	if got := cfg.ModelName(); got != "gpt-4.1" {
		t.Errorf("azure model name: got %q", got)
	}
	cfg.Backend = "nope"
	if got := cfg.ModelName(); got != "" {
		t.Errorf("unknown backend model name: got %q", got)
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		{"o1", true},
		{"o1-preview", true},
		{"o3-mini", true},
		{"o4-mini", true},
		{"O1-PREVIEW", true},
		{"O3-Mini", true},
		{"codex-mini", true},
		{"codex", true},
		{"gpt-5.2-codex", false},
		{"gpt-4o", false},
		{"gpt-4.1", false},
		{"omni", false},
		{"my-custom-deployment", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			got := isAzureReasoningModel(tc.deployment)
			if got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}

func TestNewHealthChecker(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		if r.URL.Path == "/broken/models" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ollama := NewHealthChecker(&Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: srv.URL + "/"}}, nil)
	if err := ollama.HealthCheck(context.Background()); err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if gotPath != "/api/tags" {
		t.Errorf("ollama path: got %q", gotPath)
	}

	openai := NewHealthChecker(&Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-x", BaseURL: srv.URL + "/v1"}}, nil)
	if err := openai.HealthCheck(context.Background()); err != nil {
		t.Fatalf("openai: %v", err)
	}
	if gotPath != "/v1/models" || gotAuth != "Bearer sk-x" {
		t.Errorf("openai request: path %q auth %q", gotPath, gotAuth)
	}

	broken := NewHealthChecker(&Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{BaseURL: srv.URL + "/broken"}}, nil)
	if err := broken.HealthCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("want HTTP 401 error, got %v", err)
	}

	if hc := NewHealthChecker(&Config{Backend: BackendArk}, nil); hc != nil {
		t.Errorf("ark has no zero-cost checker, got %T", hc)
	}
}
