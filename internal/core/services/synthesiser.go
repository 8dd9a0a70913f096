package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Confidence values assigned when the model response cannot be parsed
// as the requested JSON shape.
const (
	confidenceMissing   = 50 // valid JSON, confidence field absent
	confidencePlainText = 70 // no JSON object in the response at all
	confidenceBadJSON   = 60 // JSON-looking block that fails to parse
)

const sourcePreviewLen = 200

// Synthesiser turns retrieved passages into an answer for one question
// via the generative model. The model is asked for a JSON object; any
// deviation from that shape degrades to a usable answer rather than an
// error, so only transport and provider failures propagate.
type Synthesiser struct {
	llm  driven.LLMService
	opts driven.GenerateOptions
}

// NewSynthesiser creates a synthesiser using the given generation
// options for every call.
func NewSynthesiser(llm driven.LLMService, opts driven.GenerateOptions) *Synthesiser {
	return &Synthesiser{llm: llm, opts: opts}
}

// Synthesise answers one question from the given passages. Empty
// passages short-circuit to a fixed zero-confidence answer without
// calling the model. A model failure returns ANSWER_GENERATION_ERROR;
// the caller decides per-question degradation.
func (s *Synthesiser) Synthesise(ctx context.Context, question string, passages []domain.RetrievedPassage, meta domain.DocumentMeta) (domain.Answer, error) {
	if len(passages) == 0 {
		return domain.Answer{
			Text:       "I couldn't find relevant information in the document to answer this question.",
			Confidence: 0,
			Reasoning:  "No relevant context was retrieved from the document.",
			Sources:    []domain.AnswerSource{},
		}, nil
	}

	prompt := buildPrompt(question, passages, meta)

	raw, err := s.llm.Generate(ctx, prompt, s.opts)
	if err != nil {
		return domain.Answer{}, domain.Wrap(domain.CodeAnswerGeneration, err, "generating answer")
	}

	answer := parseModelResponse(raw)
	answer.Sources = buildSources(passages)
	return answer, nil
}

// buildPrompt assembles the analyst prompt: context sections built
// from the passages, the question, and the required response shape.
func buildPrompt(question string, passages []domain.RetrievedPassage, meta domain.DocumentMeta) string {
	var ctx strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&ctx, "--- Section %d ---\n%s\n(Relevance: %.2f)\n\n", i+1, p.Text, p.Similarity)
	}

	sourceRef := meta.SourceRef
	if len(sourceRef) > 100 {
		sourceRef = sourceRef[:100] + "..."
	}

	return fmt.Sprintf(`You are an expert document analyst. Answer the question using only the provided document content. Be accurate, specific, and concise.

Document Type: %s
Document Source: %s

Relevant Content:
%s
Question: %s

Instructions:
- Answer using only the document content above.
- Quote exact figures, clauses, and conditions where present.
- If the content does not contain the answer, say so plainly.
- Respond with a JSON object of this exact shape:
{"answer": "<your answer>", "confidence": <0-100>, "reasoning": "<how the content supports the answer>"}`,
		meta.Type, sourceRef, ctx.String(), question)
}

// parseModelResponse extracts the structured answer from the model
// output. The model does not always comply, so parsing is a recovery
// ladder: the substring from the first "{" to the last "}" is tried as
// JSON, and each failure mode maps to a fixed fallback confidence.
func parseModelResponse(raw string) domain.Answer {
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return domain.Answer{
			Text:       raw,
			Confidence: confidencePlainText,
			Reasoning:  "Plain text response from document analysis",
		}
	}

	var parsed struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		logger.Debug("model response JSON parse failed: %v", err)
		return domain.Answer{
			Text:       raw,
			Confidence: confidenceBadJSON,
			Reasoning:  "Fallback response due to parsing error",
		}
	}

	text := parsed.Answer
	if text == "" {
		text = raw
	}
	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "Analysis based on document content"
	}
	confidence := int(parsed.Confidence + 0.5)
	if parsed.Confidence == 0 {
		confidence = confidenceMissing
	}
	return domain.Answer{
		Text:       text,
		Confidence: clampConfidence(confidence),
		Reasoning:  reasoning,
	}
}

func buildSources(passages []domain.RetrievedPassage) []domain.AnswerSource {
	sources := make([]domain.AnswerSource, len(passages))
	for i, p := range passages {
		preview := p.Text
		if len(preview) > sourcePreviewLen {
			preview = preview[:sourcePreviewLen] + "..."
		}
		sources[i] = domain.AnswerSource{
			ChunkID:    p.ChunkID,
			Preview:    preview,
			Similarity: p.Similarity,
			SourceTier: p.SourceTier,
		}
	}
	return sources
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
