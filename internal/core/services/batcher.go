package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Default batching behaviour, tuned to provider rate limits.
const (
	DefaultEmbedBatchSize = 10
)

// EmbedBatcher turns a list of chunks into embedded chunks through the
// single-text embedding port. Chunks are embedded in fixed-size groups,
// concurrently within a group and paced between groups.
//
// If any call in a group's concurrent pass fails, the whole group is
// replayed sequentially, one paced call per chunk, and chunks that
// still fail are dropped with a warning. The output therefore pairs
// each surviving chunk with its vector and may be shorter than the
// input.
type EmbedBatcher struct {
	embedder   driven.EmbeddingService
	batchSize  int
	batchPacer *Pacer
	retryPacer *Pacer
}

// NewEmbedBatcher creates a batcher over the given embedding service.
// A non-positive batchSize falls back to DefaultEmbedBatchSize. The
// batchPacer spaces out groups; the retryPacer spaces out individual
// replay calls. Either pacer may be nil for no pacing.
func NewEmbedBatcher(embedder driven.EmbeddingService, batchSize int, batchPacer, retryPacer *Pacer) *EmbedBatcher {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbedBatcher{
		embedder:   embedder,
		batchSize:  batchSize,
		batchPacer: batchPacer,
		retryPacer: retryPacer,
	}
}

// EmbedChunks embeds every chunk and returns the surviving pairs in
// input order. It returns an error only when the context is cancelled;
// per-chunk provider failures degrade to dropped chunks.
func (b *EmbedBatcher) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	embedded := make([]domain.EmbeddedChunk, 0, len(chunks))

	for start := 0; start < len(chunks); start += b.batchSize {
		if err := b.batchPacer.Wait(ctx); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		group := chunks[start:end]

		pairs, err := b.embedGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		embedded = append(embedded, pairs...)

		logger.Debug("embedded batch %d-%d: %d/%d chunks", start, end-1, len(pairs), len(group))
	}

	if len(embedded) < len(chunks) {
		logger.Warn("embedding dropped %d of %d chunks", len(chunks)-len(embedded), len(chunks))
	}
	return embedded, nil
}

// embedGroup runs one group concurrently, falling back to a sequential
// per-chunk replay when any concurrent call fails.
func (b *EmbedBatcher) embedGroup(ctx context.Context, group []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	vectors := make([][]float32, len(group))
	errs := make([]error, len(group))

	var wg sync.WaitGroup
	for i, chunk := range group {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			vectors[i], errs[i] = b.embedder.Embed(ctx, text)
		}(i, chunk.Text)
	}
	wg.Wait()

	failed := false
	for _, err := range errs {
		if err != nil {
			failed = true
			break
		}
	}

	if !failed {
		pairs := make([]domain.EmbeddedChunk, len(group))
		for i, chunk := range group {
			pairs[i] = domain.EmbeddedChunk{Chunk: chunk, Embedding: vectors[i]}
		}
		return pairs, nil
	}

	// The group failed as a whole; replay every chunk individually so
	// one bad request cannot take out its neighbours.
	logger.Warn("embedding batch failed, retrying %d chunks individually", len(group))

	pairs := make([]domain.EmbeddedChunk, 0, len(group))
	for _, chunk := range group {
		if err := b.retryPacer.Wait(ctx); err != nil {
			return nil, err
		}
		vec, err := b.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("dropping chunk %d: %v", chunk.ID, err)
			continue
		}
		pairs = append(pairs, domain.EmbeddedChunk{Chunk: chunk, Embedding: vec})
	}
	return pairs, nil
}
