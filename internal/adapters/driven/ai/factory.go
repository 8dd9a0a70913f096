// Package ai provides factory functions for creating AI service
// adapters from provider settings.
package ai

import (
	"time"

	geminiembed "github.com/custodia-labs/docquery/internal/adapters/driven/embedding/gemini"
	openaiembed "github.com/custodia-labs/docquery/internal/adapters/driven/embedding/openai"
	geminillm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/gemini"
	openaillm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Supported AI providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// EmbeddingSettings selects and configures an embedding provider.
type EmbeddingSettings struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// LLMSettings selects and configures a generation provider.
type LLMSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// CreateEmbeddingService creates the embedding service for the
// configured provider.
func CreateEmbeddingService(settings EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case ProviderGemini, "":
		return geminiembed.NewEmbeddingService(geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Timeout:    settings.Timeout,
		})

	case ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Timeout:    settings.Timeout,
		})

	default:
		return nil, domain.E(domain.CodeConfiguration,
			"unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the generation service for the configured
// provider.
func CreateLLMService(settings LLMSettings) (driven.LLMService, error) {
	switch settings.Provider {
	case ProviderGemini, "":
		return geminillm.NewLLMService(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case ProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, domain.E(domain.CodeConfiguration,
			"unsupported LLM provider: %s", settings.Provider)
	}
}
