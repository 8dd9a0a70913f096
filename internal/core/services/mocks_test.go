package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

func (m *mockEmbedder) Ping(ctx context.Context) error { return nil }

type mockLLM struct {
	generateFn func(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error)
	calls      int
	lastPrompt string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt, opts)
	}
	return `{"answer": "yes", "confidence": 90, "reasoning": "stated in section 1"}`, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(ctx context.Context) error { return nil }

type mockIndex struct {
	ensureReadyFn func(ctx context.Context) error
	upsertFn      func(ctx context.Context, vectors []domain.StoredVector, namespace string) error
	queryFn       func(ctx context.Context, vector []float32, namespace string, topK int) ([]driven.VectorMatch, error)
	deleteFn      func(ctx context.Context, namespace string) error

	upserted map[string][]domain.StoredVector
	deleted  []string
}

func (m *mockIndex) EnsureReady(ctx context.Context) error {
	if m.ensureReadyFn != nil {
		return m.ensureReadyFn(ctx)
	}
	return nil
}

func (m *mockIndex) Upsert(ctx context.Context, vectors []domain.StoredVector, namespace string) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, vectors, namespace)
	}
	if m.upserted == nil {
		m.upserted = make(map[string][]domain.StoredVector)
	}
	m.upserted[namespace] = append(m.upserted[namespace], vectors...)
	return nil
}

func (m *mockIndex) Query(ctx context.Context, vector []float32, namespace string, topK int) ([]driven.VectorMatch, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, vector, namespace, topK)
	}
	return nil, errors.New("queryFn not set")
}

func (m *mockIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	m.deleted = append(m.deleted, namespace)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, namespace)
	}
	return nil
}

func (m *mockIndex) Stats(ctx context.Context, namespace string) (*driven.IndexStats, error) {
	return &driven.IndexStats{}, nil
}

type mockFetcher struct {
	fetchFn func(ctx context.Context, url string) (*domain.RawDocument, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*domain.RawDocument, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return &domain.RawDocument{
		URI:      url,
		MIMEType: "text/plain",
		Content:  []byte("the quick brown fox jumps over the lazy dog"),
	}, nil
}

type mockNormaliser struct {
	normaliseFn func(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

func (m *mockNormaliser) SupportedMIMETypes() []string { return []string{"text/plain"} }

func (m *mockNormaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if m.normaliseFn != nil {
		return m.normaliseFn(ctx, raw)
	}
	return &domain.Document{
		Text: string(raw.Content),
		Meta: domain.DocumentMeta{Type: "txt", Size: len(raw.Content), SourceRef: raw.URI},
	}, nil
}

type mockRegistry struct {
	normaliser driven.Normaliser
	err        error
}

func (m *mockRegistry) ForMIMEType(mimeType string) (driven.Normaliser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.normaliser, nil
}

type mockChunker struct {
	chunkFn func(text string) []domain.Chunk
}

func (m *mockChunker) Chunk(text string) []domain.Chunk {
	if m.chunkFn != nil {
		return m.chunkFn(text)
	}
	return []domain.Chunk{{ID: 0, Text: text, StartWord: 0, EndWord: 9, WordCount: 9}}
}

type mockRequestLog struct {
	recordFn func(ctx context.Context, rec domain.RequestRecord) error
	records  []domain.RequestRecord
}

func (m *mockRequestLog) Record(ctx context.Context, rec domain.RequestRecord) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, rec)
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRequestLog) Recent(ctx context.Context, limit int) ([]domain.RequestRecord, error) {
	return m.records, nil
}

func (m *mockRequestLog) Close() error { return nil }
