package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func makeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: i, Text: fmt.Sprintf("chunk %d", i), WordCount: 2}
	}
	return chunks
}

func TestEmbedBatcher_AllSucceed(t *testing.T) {
	embedder := &mockEmbedder{}
	batcher := NewEmbedBatcher(embedder, 10, NewPacer(0), NewPacer(0))

	pairs, err := batcher.EmbedChunks(context.Background(), makeChunks(25))
	require.NoError(t, err)
	require.Len(t, pairs, 25)
	assert.Equal(t, 25, embedder.callCount())

	for i, p := range pairs {
		assert.Equal(t, i, p.Chunk.ID)
		assert.NotEmpty(t, p.Embedding)
	}
}

func TestEmbedBatcher_PersistentFailureDropsChunk(t *testing.T) {
	var mu sync.Mutex
	embedder := &mockEmbedder{
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			mu.Lock()
			defer mu.Unlock()
			if strings.HasSuffix(text, " 7") {
				return nil, errors.New("provider rejected input")
			}
			return []float32{1, 0, 0}, nil
		},
	}
	batcher := NewEmbedBatcher(embedder, 10, NewPacer(0), NewPacer(0))

	pairs, err := batcher.EmbedChunks(context.Background(), makeChunks(25))
	require.NoError(t, err)
	require.Len(t, pairs, 24)

	for _, p := range pairs {
		assert.NotEqual(t, 7, p.Chunk.ID)
	}
}

func TestEmbedBatcher_TransientGroupFailureRecovers(t *testing.T) {
	// First concurrent pass fails for one chunk; the sequential replay
	// succeeds for everything.
	var mu sync.Mutex
	failedOnce := false
	embedder := &mockEmbedder{
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			mu.Lock()
			defer mu.Unlock()
			if strings.HasSuffix(text, " 3") && !failedOnce {
				failedOnce = true
				return nil, errors.New("transient")
			}
			return []float32{0, 1, 0}, nil
		},
	}
	batcher := NewEmbedBatcher(embedder, 10, NewPacer(0), NewPacer(0))

	pairs, err := batcher.EmbedChunks(context.Background(), makeChunks(10))
	require.NoError(t, err)
	assert.Len(t, pairs, 10)
	// 10 concurrent calls plus 10 sequential replays.
	assert.Equal(t, 20, embedder.callCount())
}

func TestEmbedBatcher_PreservesInputOrder(t *testing.T) {
	embedder := &mockEmbedder{}
	batcher := NewEmbedBatcher(embedder, 4, NewPacer(0), NewPacer(0))

	pairs, err := batcher.EmbedChunks(context.Background(), makeChunks(11))
	require.NoError(t, err)
	require.Len(t, pairs, 11)
	for i, p := range pairs {
		assert.Equal(t, i, p.Chunk.ID)
	}
}

func TestEmbedBatcher_EmptyInput(t *testing.T) {
	batcher := NewEmbedBatcher(&mockEmbedder{}, 10, NewPacer(0), NewPacer(0))

	pairs, err := batcher.EmbedChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestEmbedBatcher_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := &mockEmbedder{
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			return nil, ctx.Err()
		},
	}
	batcher := NewEmbedBatcher(embedder, 10, NewPacer(0), NewPacer(0))

	_, err := batcher.EmbedChunks(ctx, makeChunks(5))
	require.Error(t, err)
}
