package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testToken = "secret-token"

type mockQuery struct {
	runFn func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
	last  domain.QueryRequest
}

func (m *mockQuery) Run(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.last = req
	if m.runFn != nil {
		return m.runFn(ctx, req)
	}
	return &domain.QueryResult{
		Answers: []domain.Answer{{
			Text:       "Thirty days.",
			Confidence: 90,
			Reasoning:  "Stated in section 2.",
			Sources: []domain.AnswerSource{{
				ChunkID:    3,
				Preview:    "The grace period is thirty days.",
				Similarity: 0.91,
				SourceTier: domain.TierVectorIndex,
			}},
		}},
		Metadata: domain.ResultMetadata{
			RequestID:        "req_123",
			ProcessingTimeMs: 1500,
			DocumentInfo:     domain.DocumentInfo{Type: "pdf", Size: 2048, Chunks: 4, TextLength: 9000},
			QuestionCount:    1,
			AvgConfidence:    90,
			Timestamp:        time.Now().UTC(),
		},
	}, nil
}

func newTestServer(query *mockQuery) *Server {
	return NewServer(Config{BearerToken: testToken}, query, nil, nil, nil, nil)
}

func doRequest(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func validRunBody() map[string]any {
	return map[string]any{
		"documents": "https://example.com/policy.pdf",
		"questions": []string{"What is the grace period for premium payment?"},
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer(&mockQuery{})

	w := doRequest(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{"missing header", "", codeAuthRequired},
		{"wrong scheme", "Basic dXNlcg==", codeInvalidAuthFormat},
		{"wrong token", "Bearer wrong", codeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockQuery{})
			w := doRequest(s, http.MethodPost, "/api/v1/run", tt.token, validRunBody())

			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestRun_Success(t *testing.T) {
	query := &mockQuery{}
	s := newTestServer(query)

	w := doRequest(s, http.MethodPost, "/api/v1/run", "Bearer "+testToken, validRunBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp runResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "Thirty days.", resp.Answers[0].Answer)
	assert.Equal(t, 90, resp.Answers[0].Confidence)
	require.Len(t, resp.Answers[0].Sources, 1)
	assert.Equal(t, "vector_index", resp.Answers[0].Sources[0].SourceTier)
	assert.Equal(t, "req_123", resp.Metadata.RequestID)
	assert.Equal(t, "pdf", resp.Metadata.DocumentInfo.Type)

	// The pipeline saw the parsed request.
	assert.Equal(t, "https://example.com/policy.pdf", query.last.DocumentURL)
	assert.Len(t, query.last.Questions, 1)
}

func TestRun_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantDetail string
	}{
		{
			name:       "missing document",
			body:       map[string]any{"questions": []string{"What is the grace period?"}},
			wantDetail: "documents",
		},
		{
			name: "non-http URL",
			body: map[string]any{
				"documents": "ftp://example.com/doc.pdf",
				"questions": []string{"What is the grace period?"},
			},
			wantDetail: "http(s)",
		},
		{
			name:       "no questions",
			body:       map[string]any{"documents": "https://example.com/doc.pdf"},
			wantDetail: "at least one question",
		},
		{
			name: "question too short",
			body: map[string]any{
				"documents": "https://example.com/doc.pdf",
				"questions": []string{"why?"},
			},
			wantDetail: "questions[0]",
		},
		{
			name: "question too long",
			body: map[string]any{
				"documents": "https://example.com/doc.pdf",
				"questions": []string{strings.Repeat("x", 1200)},
			},
			wantDetail: "at most 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockQuery{})
			w := doRequest(s, http.MethodPost, "/api/v1/run", "Bearer "+testToken, tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			require.NotEmpty(t, body.Details)
			assert.Contains(t, strings.Join(body.Details, "\n"), tt.wantDetail)
		})
	}
}

func TestRun_TooManyQuestions(t *testing.T) {
	questions := make([]string, 51)
	for i := range questions {
		questions[i] = "What is the grace period?"
	}
	s := newTestServer(&mockQuery{})

	w := doRequest(s, http.MethodPost, "/api/v1/run", "Bearer "+testToken, map[string]any{
		"documents": "https://example.com/doc.pdf",
		"questions": questions,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at most 50")
}

func TestRun_MalformedJSON(t *testing.T) {
	s := newTestServer(&mockQuery{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
}

func TestRun_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"document failure", domain.E(domain.CodeDocumentProcessing, "bad pdf"), http.StatusUnprocessableEntity},
		{"embedding outage", domain.E(domain.CodeEmbedding, "quota"), http.StatusServiceUnavailable},
		{"index outage", domain.E(domain.CodeVectorIndex, "down"), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockQuery{
				runFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
					return nil, tt.err
				},
			})

			w := doRequest(s, http.MethodPost, "/api/v1/run", "Bearer "+testToken, validRunBody())
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRun_ProductionSuppressesInternalDetail(t *testing.T) {
	s := NewServer(Config{BearerToken: testToken, Production: true}, &mockQuery{
		runFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
			return nil, errors.New("pq: connection string contained password")
		},
	}, nil, nil, nil, nil)

	w := doRequest(s, http.MethodPost, "/api/v1/run", "Bearer "+testToken, validRunBody())
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "internal processing error")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(&mockQuery{})

	w := doRequest(s, http.MethodGet, "/api/v2/run", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, codeRouteNotFound, decodeError(t, w).Code)
}

type stubIndex struct {
	stats *driven.IndexStats
	err   error
}

func (s *stubIndex) EnsureReady(context.Context) error { return nil }
func (s *stubIndex) Upsert(context.Context, []domain.StoredVector, string) error {
	return nil
}
func (s *stubIndex) Query(context.Context, []float32, string, int) ([]driven.VectorMatch, error) {
	return nil, nil
}
func (s *stubIndex) DeleteNamespace(context.Context, string) error { return nil }
func (s *stubIndex) Stats(context.Context, string) (*driven.IndexStats, error) {
	return s.stats, s.err
}

func TestStatus_ReportsIndexStats(t *testing.T) {
	index := &stubIndex{stats: &driven.IndexStats{TotalVectors: 42, Dimension: 768}}
	s := NewServer(Config{BearerToken: testToken}, &mockQuery{}, nil, nil, index, nil)

	w := doRequest(s, http.MethodGet, "/api/v1/status", "Bearer "+testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Services struct {
			VectorIndex struct {
				Status       string `json:"status"`
				TotalVectors int    `json:"totalVectors"`
			} `json:"vectorIndex"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Services.VectorIndex.Status)
	assert.Equal(t, 42, resp.Services.VectorIndex.TotalVectors)
}

func TestStatus_DegradedProviderReturns503(t *testing.T) {
	index := &stubIndex{err: errors.New("connection refused")}
	s := NewServer(Config{BearerToken: testToken}, &mockQuery{}, nil, nil, index, nil)

	w := doRequest(s, http.MethodGet, "/api/v1/status", "Bearer "+testToken, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "unreachable")
}

func TestStatus_IncludesRecentRequests(t *testing.T) {
	log := memory.NewRequestLogStore()
	require.NoError(t, log.Record(context.Background(), domain.RequestRecord{
		RequestID:     "req_abc",
		DocumentType:  "pdf",
		QuestionCount: 2,
		AvgConfidence: 85,
		CreatedAt:     time.Now().UTC(),
	}))
	s := NewServer(Config{BearerToken: testToken}, &mockQuery{}, nil, nil, nil, log)

	w := doRequest(s, http.MethodGet, "/api/v1/status", "Bearer "+testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"req_abc"`)
	assert.Contains(t, w.Body.String(), `"documentType":"pdf"`)
}

func TestHealth_ReportsVersion(t *testing.T) {
	s := NewServer(Config{BearerToken: testToken, Version: "1.2.3"}, &mockQuery{}, nil, nil, nil, nil)

	w := doRequest(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}
