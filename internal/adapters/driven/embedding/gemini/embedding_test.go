package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, dims int) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewEmbeddingService(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Dimensions: dims,
	})
	require.NoError(t, err)
	return svc
}

func vectorResponse(n int) map[string]any {
	values := make([]float32, n)
	for i := range values {
		values[i] = 0.1
	}
	return map[string]any{"embedding": map[string]any{"values": values}}
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeConfiguration))
}

func TestEmbed_Success(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "embedding-001:embedContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		json.NewEncoder(w).Encode(vectorResponse(4))
	}, 4)

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbed_TruncatesLongInput(t *testing.T) {
	var sentLen int
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sentLen = len(req.Content.Parts[0].Text)
		json.NewEncoder(w).Encode(vectorResponse(4))
	}, 4)

	_, err := svc.Embed(context.Background(), strings.Repeat("x", 20000))
	require.NoError(t, err)
	assert.Equal(t, maxInputChars+3, sentLen)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(vectorResponse(3))
	}, 4)

	_, err := svc.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeEmbedding))
	assert.Contains(t, err.Error(), "dimensions")
}

func TestEmbed_EmptyVector(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": map[string]any{"values": []float32{}}})
	}, 4)

	_, err := svc.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeEmbedding))
}

func TestEmbed_ProviderError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"code":    429,
			"message": "quota exceeded",
			"status":  "RESOURCE_EXHAUSTED",
		}})
	}, 4)

	_, err := svc.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeEmbedding))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, 4)

	assert.NoError(t, svc.Ping(context.Background()))
}
