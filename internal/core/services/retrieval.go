package services

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Retriever finds the passages most relevant to a question vector.
//
// Retrieval is tiered and never fails: the external vector index is
// tried first, the in-memory engine covers index errors or empty index
// results, and a last-resort in-memory pass covers the case where both
// earlier tiers errored. The worst case is an empty passage list.
type Retriever struct {
	index     driven.VectorIndex
	engine    *SimilarityEngine
	threshold float64
	topK      int
}

// NewRetriever creates a retriever. The index may be nil, in which
// case every question is served from the in-memory tier.
func NewRetriever(index driven.VectorIndex, engine *SimilarityEngine, threshold float64, topK int) *Retriever {
	return &Retriever{
		index:     index,
		engine:    engine,
		threshold: threshold,
		topK:      topK,
	}
}

// FindRelevantChunks returns up to topK passages for the query vector,
// each stamped with the tier that produced it. embedded is the full
// in-memory candidate set for the current document; namespace scopes
// the index lookup to the current request.
func (r *Retriever) FindRelevantChunks(ctx context.Context, query []float32, embedded []domain.EmbeddedChunk, namespace string) []domain.RetrievedPassage {
	passages, indexErr := r.queryIndex(ctx, query, namespace)
	if indexErr == nil {
		if len(passages) > 0 {
			return passages
		}
		// The index answered but had nothing usable; rescore locally
		// in case the namespace write was dropped.
		logger.Debug("vector index returned no matches, using in-memory fallback")
		fallback, err := r.engine.Search(query, embedded, r.topK)
		if err == nil {
			return stampTier(fallback, domain.TierInMemoryFallback)
		}
		logger.Warn("in-memory fallback failed: %v", err)
		return r.lastResort(query, embedded)
	}

	logger.Warn("vector index query failed, using in-memory fallback: %v", indexErr)
	fallback, err := r.engine.Search(query, embedded, r.topK)
	if err == nil {
		return stampTier(fallback, domain.TierInMemoryFallback)
	}
	logger.Warn("in-memory fallback failed: %v", err)
	return r.lastResort(query, embedded)
}

// queryIndex runs the primary tier: over-fetch from the index, apply
// the threshold locally, truncate to topK.
func (r *Retriever) queryIndex(ctx context.Context, query []float32, namespace string) ([]domain.RetrievedPassage, error) {
	if r.index == nil {
		return nil, domain.E(domain.CodeVectorIndex, "vector index not configured")
	}

	// Fetch twice the target so threshold filtering still leaves a
	// full result set when borderline matches are discarded.
	matches, err := r.index.Query(ctx, query, namespace, r.topK*2)
	if err != nil {
		return nil, err
	}

	passages := make([]domain.RetrievedPassage, 0, r.topK)
	for _, m := range matches {
		if m.Score < r.threshold {
			continue
		}
		passages = append(passages, domain.RetrievedPassage{
			Text:       m.Metadata.Text,
			ChunkID:    m.Metadata.ChunkID,
			StartWord:  m.Metadata.StartWord,
			EndWord:    m.Metadata.EndWord,
			WordCount:  m.Metadata.WordCount,
			Similarity: m.Score,
			SourceTier: domain.TierVectorIndex,
		})
		if len(passages) == r.topK {
			break
		}
	}
	return passages, nil
}

// lastResort is the final tier, reached only after both the index and
// the first in-memory pass failed. It tries the engine once more and
// degrades to an empty result rather than propagating anything.
func (r *Retriever) lastResort(query []float32, embedded []domain.EmbeddedChunk) []domain.RetrievedPassage {
	passages, err := r.engine.Search(query, embedded, r.topK)
	if err != nil {
		logger.Error("all retrieval tiers failed: %v", err)
		return []domain.RetrievedPassage{}
	}
	return stampTier(passages, domain.TierErrorFallback)
}

func stampTier(passages []domain.RetrievedPassage, tier domain.SourceTier) []domain.RetrievedPassage {
	for i := range passages {
		passages[i].SourceTier = tier
	}
	return passages
}
