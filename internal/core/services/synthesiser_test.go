package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

func testMeta() domain.DocumentMeta {
	return domain.DocumentMeta{Type: "pdf", Size: 1024, SourceRef: "https://example.com/policy.pdf"}
}

func testPassages() []domain.RetrievedPassage {
	return []domain.RetrievedPassage{
		{Text: "The grace period is thirty days.", ChunkID: 4, Similarity: 0.91, SourceTier: domain.TierVectorIndex},
	}
}

func TestSynthesiser_EmptyPassagesSkipsModel(t *testing.T) {
	llm := &mockLLM{}
	s := NewSynthesiser(llm, driven.GenerateOptions{})

	answer, err := s.Synthesise(context.Background(), "what is covered?", nil, testMeta())
	require.NoError(t, err)

	assert.Zero(t, llm.calls)
	assert.Zero(t, answer.Confidence)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.False(t, answer.IsError)
	assert.Contains(t, answer.Text, "couldn't find relevant information")
}

func TestSynthesiser_StructuredResponse(t *testing.T) {
	llm := &mockLLM{
		generateFn: func(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
			return `Here you go: {"answer": "Thirty days.", "confidence": 92, "reasoning": "Stated in section 2."} Hope that helps.`, nil
		},
	}
	s := NewSynthesiser(llm, driven.GenerateOptions{})

	answer, err := s.Synthesise(context.Background(), "grace period?", testPassages(), testMeta())
	require.NoError(t, err)

	assert.Equal(t, "Thirty days.", answer.Text)
	assert.Equal(t, 92, answer.Confidence)
	assert.Equal(t, "Stated in section 2.", answer.Reasoning)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 4, answer.Sources[0].ChunkID)
	assert.Equal(t, domain.TierVectorIndex, answer.Sources[0].SourceTier)
}

func TestSynthesiser_ResponseParsing(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantText       string
		wantConfidence int
	}{
		{
			name:           "plain text without JSON",
			raw:            "The grace period is thirty days.",
			wantText:       "The grace period is thirty days.",
			wantConfidence: 70,
		},
		{
			name:           "malformed JSON block",
			raw:            `{"answer": "thirty days", "confidence": }`,
			wantText:       `{"answer": "thirty days", "confidence": }`,
			wantConfidence: 60,
		},
		{
			name:           "missing confidence defaults",
			raw:            `{"answer": "thirty days", "reasoning": "section 2"}`,
			wantText:       "thirty days",
			wantConfidence: 50,
		},
		{
			name:           "confidence above range is clamped",
			raw:            `{"answer": "thirty days", "confidence": 250}`,
			wantText:       "thirty days",
			wantConfidence: 100,
		},
		{
			name:           "fractional confidence is rounded",
			raw:            `{"answer": "thirty days", "confidence": 87.6}`,
			wantText:       "thirty days",
			wantConfidence: 88,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{
				generateFn: func(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
					return tt.raw, nil
				},
			}
			s := NewSynthesiser(llm, driven.GenerateOptions{})

			answer, err := s.Synthesise(context.Background(), "q", testPassages(), testMeta())
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, answer.Text)
			assert.Equal(t, tt.wantConfidence, answer.Confidence)
		})
	}
}

func TestSynthesiser_ModelFailure(t *testing.T) {
	llm := &mockLLM{
		generateFn: func(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	s := NewSynthesiser(llm, driven.GenerateOptions{})

	_, err := s.Synthesise(context.Background(), "q", testPassages(), testMeta())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeAnswerGeneration))
}

func TestSynthesiser_SourcePreviewTruncation(t *testing.T) {
	long := strings.Repeat("a", 500)
	passages := []domain.RetrievedPassage{
		{Text: long, ChunkID: 0, Similarity: 0.9, SourceTier: domain.TierInMemoryFallback},
	}

	s := NewSynthesiser(&mockLLM{}, driven.GenerateOptions{})

	answer, err := s.Synthesise(context.Background(), "q", passages, testMeta())
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Len(t, answer.Sources[0].Preview, 203)
	assert.True(t, strings.HasSuffix(answer.Sources[0].Preview, "..."))
}

func TestSynthesiser_PromptContainsContext(t *testing.T) {
	llm := &mockLLM{}
	s := NewSynthesiser(llm, driven.GenerateOptions{})

	_, err := s.Synthesise(context.Background(), "what is the grace period?", testPassages(), testMeta())
	require.NoError(t, err)

	assert.Contains(t, llm.lastPrompt, "The grace period is thirty days.")
	assert.Contains(t, llm.lastPrompt, "what is the grace period?")
	assert.Contains(t, llm.lastPrompt, "Document Type: pdf")
}
