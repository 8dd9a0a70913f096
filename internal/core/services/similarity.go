package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// SimilarityEngine ranks embedded chunks against a query vector by
// cosine similarity. It backs the in-memory retrieval tiers and is the
// reference scoring implementation the external index is compared
// against.
type SimilarityEngine struct {
	threshold float64
}

// NewSimilarityEngine creates an engine that discards candidates whose
// similarity does not exceed threshold.
func NewSimilarityEngine(threshold float64) *SimilarityEngine {
	return &SimilarityEngine{threshold: threshold}
}

// Threshold returns the configured similarity cut-off.
func (e *SimilarityEngine) Threshold() float64 {
	return e.threshold
}

// Search scores every candidate against the query vector, sorts by
// descending similarity, truncates to topK and drops scores at or
// below the threshold. Returned passages carry no source tier; the
// caller stamps the tier it retrieved them under.
//
// A dimension mismatch between the query and any candidate is an
// error: mixed-dimension vectors mean the caller paired vectors from
// different models, and silently scoring them would rank garbage.
func (e *SimilarityEngine) Search(query []float32, candidates []domain.EmbeddedChunk, topK int) ([]domain.RetrievedPassage, error) {
	type scored struct {
		chunk domain.Chunk
		score float64
	}

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score, err := cosineSimilarity(query, c.Embedding)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{chunk: c.Chunk, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	passages := make([]domain.RetrievedPassage, 0, len(ranked))
	for _, r := range ranked {
		if r.score <= e.threshold {
			continue
		}
		passages = append(passages, domain.RetrievedPassage{
			Text:       r.chunk.Text,
			ChunkID:    r.chunk.ID,
			StartWord:  r.chunk.StartWord,
			EndWord:    r.chunk.EndWord,
			WordCount:  r.chunk.WordCount,
			Similarity: r.score,
		})
	}
	return passages, nil
}

// cosineSimilarity computes dot(a,b) / (|a|*|b|). Either vector having
// zero magnitude yields 0 rather than NaN.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.E(domain.CodeProcessing, "vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
