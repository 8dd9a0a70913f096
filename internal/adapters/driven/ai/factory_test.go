package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  EmbeddingSettings
		wantModel string
		wantErr   bool
	}{
		{
			name:      "gemini default",
			settings:  EmbeddingSettings{Provider: ProviderGemini, APIKey: "k", Dimensions: 768},
			wantModel: "embedding-001",
		},
		{
			name:      "empty provider defaults to gemini",
			settings:  EmbeddingSettings{APIKey: "k", Dimensions: 768},
			wantModel: "embedding-001",
		},
		{
			name:      "openai",
			settings:  EmbeddingSettings{Provider: ProviderOpenAI, APIKey: "k", Dimensions: 1536},
			wantModel: "text-embedding-3-small",
		},
		{
			name:     "unknown provider",
			settings: EmbeddingSettings{Provider: "cohere", APIKey: "k", Dimensions: 768},
			wantErr:  true,
		},
		{
			name:     "missing key",
			settings: EmbeddingSettings{Provider: ProviderGemini, Dimensions: 768},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsCode(err, domain.CodeConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.settings.Dimensions, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(LLMSettings{Provider: ProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", svc.ModelName())

	svc, err = CreateLLMService(LLMSettings{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", svc.ModelName())

	_, err = CreateLLMService(LLMSettings{Provider: "mistral", APIKey: "k"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeConfiguration))
}
