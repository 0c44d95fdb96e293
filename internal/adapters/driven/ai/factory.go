// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/lenscore/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lenscore/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/lenscore/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/lenscore/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/lenscore/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/lenscore/internal/adapters/driven/translator"
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the model backends of one run.
type Services struct {
	Embedding  driven.EmbeddingService
	LLM        driven.LLMService
	Translator driven.Translator

	translationLLM driven.LLMService
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.LLM != nil {
		_ = s.LLM.Close()
	}
	if s.translationLLM != nil {
		_ = s.translationLLM.Close()
	}
}

// NewServices creates every model backend named by cfg. The translator is
// nil when no translation provider is configured.
func NewServices(cfg *domain.Config, prompts driven.PromptStore) (*Services, error) {
	embedding, err := CreateEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	llm, err := CreateLLMService(cfg.Model)
	if err != nil {
		_ = embedding.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	s := &Services{Embedding: embedding, LLM: llm}

	if cfg.Translation.Provider != "" {
		tllm, err := CreateLLMService(TranslationModel(cfg.Translation))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrTranslation, err)
		}
		s.translationLLM = tllm
		s.Translator = translator.New(tllm, prompts)
	}
	return s, nil
}

// Ping checks every backend and returns the failures joined.
func (s *Services) Ping(ctx context.Context) error {
	var errs []error
	if s.Embedding != nil {
		if err := ping(ctx, s.Embedding); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err))
		}
	}
	if s.LLM != nil {
		if err := ping(ctx, s.LLM); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err))
		}
	}
	if s.translationLLM != nil {
		if err := ping(ctx, s.translationLLM); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", domain.ErrTranslation, err))
		}
	}
	return errors.Join(errs...)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, p pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service named by settings.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateLLMService creates the generative model named by settings.
func CreateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	logger.Debug("Creating %s LLM service (model %s)", settings.Provider, settings.Model)
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
}

// TranslationModel maps translation settings onto model settings.
func TranslationModel(t domain.TranslationSettings) domain.LLMSettings {
	return domain.LLMSettings{
		Provider: t.Provider,
		Model:    t.Model,
		BaseURL:  t.BaseURL,
		APIKey:   t.APIKey,
		Timeout:  t.Timeout,
	}
}
