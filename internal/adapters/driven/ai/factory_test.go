package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

type nopPrompts struct{}

func (nopPrompts) Load(string) (string, error)        { return "", nil }
func (nopPrompts) Render(string, any) (string, error) { return "", nil }
func (nopPrompts) Reload()                            {}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    domain.EmbeddingSettings
		wantErr     bool
		errContains string
	}{
		{
			name:     "ollama provider creates service",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name:     "openai provider creates service",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small"},
		},
		{
			name:        "openai without key fails",
			settings:    domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:     true,
			errContains: "API key is required",
		},
		{
			name:        "anthropic provider returns error",
			settings:    domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name:        "unknown provider returns error",
			settings:    domain.EmbeddingSettings{Provider: "unknown"},
			wantErr:     true,
			errContains: "unsupported embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.LLMSettings
		wantErr  bool
	}{
		{"ollama", domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}, false},
		{"openai", domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"}, false},
		{"anthropic", domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-haiku"}, false},
		{"anthropic without key", domain.LLMSettings{Provider: domain.AIProviderAnthropic}, true},
		{"unknown", domain.LLMSettings{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestNewServices(t *testing.T) {
	cfg := domain.DefaultConfig()
	s, err := NewServices(&cfg, nopPrompts{})
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.Embedding)
	assert.NotNil(t, s.LLM)
	assert.NotNil(t, s.Translator)

	cfg.Translation.Provider = ""
	s2, err := NewServices(&cfg, nopPrompts{})
	require.NoError(t, err)
	defer s2.Close()
	assert.Nil(t, s2.Translator)
}

func TestNewServices_Errors(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Embedding.Provider = domain.AIProviderAnthropic
	_, err := NewServices(&cfg, nopPrompts{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	cfg = domain.DefaultConfig()
	cfg.Model.Provider = domain.AIProviderOpenAI
	_, err = NewServices(&cfg, nopPrompts{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	cfg = domain.DefaultConfig()
	cfg.Translation.Provider = "unknown"
	_, err = NewServices(&cfg, nopPrompts{})
	assert.ErrorIs(t, err, domain.ErrTranslation)
}

func TestServices_Ping(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer up.Close()

	cfg := domain.DefaultConfig()
	cfg.Embedding.BaseURL = up.URL
	cfg.Model.BaseURL = up.URL
	cfg.Translation.BaseURL = up.URL

	s, err := NewServices(&cfg, nopPrompts{})
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestServices_PingReportsFailures(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer down.Close()

	cfg := domain.DefaultConfig()
	cfg.Embedding.BaseURL = down.URL
	cfg.Model.BaseURL = down.URL
	cfg.Translation.Provider = ""

	s, err := NewServices(&cfg, nopPrompts{})
	require.NoError(t, err)
	defer s.Close()

	err = s.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestTranslationModel(t *testing.T) {
	m := TranslationModel(domain.TranslationSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "k",
	})
	assert.Equal(t, domain.AIProviderOpenAI, m.Provider)
	assert.Equal(t, "gpt-4o-mini", m.Model)
	assert.Equal(t, "k", m.APIKey)
}
