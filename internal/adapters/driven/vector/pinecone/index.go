// Package pinecone provides a vector index adapter using the Pinecone
// REST API, with namespace-scoped storage and lazy index creation.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultControlPlaneURL = "https://api.pinecone.io"
	DefaultCloud           = "aws"
	DefaultRegion          = "us-east-1"
	DefaultMetric          = "cosine"
	DefaultDimension       = 768
	DefaultTimeout         = 30 * time.Second
	DefaultReadyTimeout    = 60 * time.Second

	// readyPollInterval is the fixed delay between readiness probes
	// while a freshly created index initialises.
	readyPollInterval = 2 * time.Second

	// upsertBatchSize caps vectors per upsert call to stay under the
	// provider payload limit.
	upsertBatchSize = 100

	apiVersion = "2025-01"
)

// Config holds configuration for the Pinecone index adapter.
type Config struct {
	// APIKey is the Pinecone API key (required).
	APIKey string

	// IndexName is the index to use, created on first use if absent
	// (required).
	IndexName string

	// ControlPlaneURL is the management API base URL.
	ControlPlaneURL string

	// Cloud and Region select the serverless placement for a newly
	// created index.
	Cloud  string
	Region string

	// Dimension is the vector size declared at index creation
	// (default: 768).
	Dimension int

	// Metric is the similarity metric (default: cosine).
	Metric string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// ReadyTimeout bounds the wait for a new index to become ready
	// (default: 60s).
	ReadyTimeout time.Duration
}

// Index talks to one Pinecone index over its control and data planes.
// The data-plane host is discovered during EnsureReady and cached for
// the process lifetime.
type Index struct {
	client       *http.Client
	apiKey       string
	indexName    string
	controlURL   string
	cloud        string
	region       string
	dimension    int
	metric       string
	readyTimeout time.Duration

	mu      sync.Mutex
	hostURL string
}

// Wire formats.

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type createIndexRequest struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Spec      indexSpec `json:"spec"`
}

type indexSpec struct {
	Serverless serverlessSpec `json:"serverless"`
}

type serverlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

// vectorMetadata is the flat metadata payload stored per vector.
// Pinecone metadata supports strings and numbers only, so the creation
// time travels as RFC 3339 text.
type vectorMetadata struct {
	Text        string `json:"text"`
	ChunkID     int    `json:"chunk_id"`
	StartWord   int    `json:"start_word"`
	EndWord     int    `json:"end_word"`
	WordCount   int    `json:"word_count"`
	DocumentRef string `json:"document_ref"`
	RequestID   string `json:"request_id"`
	CreatedAt   string `json:"created_at"`
}

type wireVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata vectorMetadata `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []wireVector `json:"vectors"`
	Namespace string       `json:"namespace"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata vectorMetadata `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	DeleteAll bool   `json:"deleteAll"`
	Namespace string `json:"namespace"`
}

type statsResponse struct {
	Namespaces map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int     `json:"dimension"`
	IndexFullness    float64 `json:"indexFullness"`
	TotalVectorCount int     `json:"totalVectorCount"`
}

// New creates a Pinecone index adapter. The backing index is not
// touched until EnsureReady.
func New(cfg Config) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, domain.E(domain.CodeConfiguration, "pinecone: API key is required")
	}
	if cfg.IndexName == "" {
		return nil, domain.E(domain.CodeConfiguration, "pinecone: index name is required")
	}
	if cfg.ControlPlaneURL == "" {
		cfg.ControlPlaneURL = DefaultControlPlaneURL
	}
	if cfg.Cloud == "" {
		cfg.Cloud = DefaultCloud
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Metric == "" {
		cfg.Metric = DefaultMetric
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}

	return &Index{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:       cfg.APIKey,
		indexName:    cfg.IndexName,
		controlURL:   cfg.ControlPlaneURL,
		cloud:        cfg.Cloud,
		region:       cfg.Region,
		dimension:    cfg.Dimension,
		metric:       cfg.Metric,
		readyTimeout: cfg.ReadyTimeout,
	}, nil
}

// EnsureReady creates the index if it does not exist and waits until
// it reports ready, caching the data-plane host. Safe to call from
// concurrent requests; only the first call does real work.
func (x *Index) EnsureReady(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.hostURL != "" {
		return nil
	}

	desc, err := x.describeIndex(ctx)
	if err != nil {
		return err
	}
	if desc == nil {
		logger.Info("pinecone: creating index %s (%d dimensions, %s)", x.indexName, x.dimension, x.metric)
		if err := x.createIndex(ctx); err != nil {
			return err
		}
	} else if desc.Dimension != 0 && desc.Dimension != x.dimension {
		return domain.E(domain.CodeVectorIndex, "pinecone: index %s has dimension %d, expected %d",
			x.indexName, desc.Dimension, x.dimension)
	}

	maxPolls := uint64(x.readyTimeout / readyPollInterval)
	if maxPolls == 0 {
		maxPolls = 1
	}
	poll := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(readyPollInterval), maxPolls), ctx)

	var host string
	err = backoff.Retry(func() error {
		desc, err := x.describeIndex(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if desc == nil || !desc.Status.Ready {
			return fmt.Errorf("index %s not ready", x.indexName)
		}
		host = desc.Host
		return nil
	}, poll)
	if err != nil {
		return domain.Wrap(domain.CodeVectorIndex, err, "pinecone: waiting for index")
	}

	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	x.hostURL = host
	logger.Debug("pinecone: index %s ready at %s", x.indexName, x.hostURL)
	return nil
}

// Upsert writes vectors into the namespace in provider-sized batches.
// Malformed vectors fail the whole call before anything is sent.
func (x *Index) Upsert(ctx context.Context, vectors []domain.StoredVector, namespace string) error {
	if len(vectors) == 0 {
		return nil
	}

	wire := make([]wireVector, len(vectors))
	for i, v := range vectors {
		if v.ID == "" {
			return domain.E(domain.CodeVectorIndex, "pinecone: vector %d has empty ID", i)
		}
		if len(v.Values) == 0 {
			return domain.E(domain.CodeVectorIndex, "pinecone: vector %s has no values", v.ID)
		}
		wire[i] = wireVector{
			ID:     v.ID,
			Values: v.Values,
			Metadata: vectorMetadata{
				Text:        v.Metadata.Text,
				ChunkID:     v.Metadata.ChunkID,
				StartWord:   v.Metadata.StartWord,
				EndWord:     v.Metadata.EndWord,
				WordCount:   v.Metadata.WordCount,
				DocumentRef: v.Metadata.DocumentRef,
				RequestID:   v.Metadata.RequestID,
				CreatedAt:   v.Metadata.CreatedAt.Format(time.RFC3339),
			},
		}
	}

	for start := 0; start < len(wire); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(wire) {
			end = len(wire)
		}
		body := upsertRequest{Vectors: wire[start:end], Namespace: namespace}
		if err := x.dataPlanePost(ctx, "/vectors/upsert", body, nil); err != nil {
			return err
		}
	}
	return nil
}

// Query returns up to topK matches from the namespace with metadata.
func (x *Index) Query(ctx context.Context, vector []float32, namespace string, topK int) ([]driven.VectorMatch, error) {
	var resp queryResponse
	err := x.dataPlanePost(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]driven.VectorMatch, len(resp.Matches))
	for i, m := range resp.Matches {
		created, _ := time.Parse(time.RFC3339, m.Metadata.CreatedAt)
		matches[i] = driven.VectorMatch{
			ID:    m.ID,
			Score: m.Score,
			Metadata: domain.VectorMetadata{
				Text:        m.Metadata.Text,
				ChunkID:     m.Metadata.ChunkID,
				StartWord:   m.Metadata.StartWord,
				EndWord:     m.Metadata.EndWord,
				WordCount:   m.Metadata.WordCount,
				DocumentRef: m.Metadata.DocumentRef,
				RequestID:   m.Metadata.RequestID,
				CreatedAt:   created,
			},
		}
	}
	return matches, nil
}

// DeleteNamespace removes all vectors in the namespace.
func (x *Index) DeleteNamespace(ctx context.Context, namespace string) error {
	return x.dataPlanePost(ctx, "/vectors/delete", deleteRequest{
		DeleteAll: true,
		Namespace: namespace,
	}, nil)
}

// Stats reports index statistics, scoped to the namespace when given.
func (x *Index) Stats(ctx context.Context, namespace string) (*driven.IndexStats, error) {
	var resp statsResponse
	if err := x.dataPlanePost(ctx, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, err
	}

	stats := &driven.IndexStats{
		TotalVectors:  resp.TotalVectorCount,
		Dimension:     resp.Dimension,
		IndexFullness: resp.IndexFullness,
	}
	if ns, ok := resp.Namespaces[namespace]; ok {
		stats.NamespaceVectors = ns.VectorCount
	}
	return stats, nil
}

// describeIndex fetches the index description, or nil when the index
// does not exist.
func (x *Index) describeIndex(ctx context.Context) (*indexDescription, error) {
	url := fmt.Sprintf("%s/indexes/%s", x.controlURL, x.indexName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	x.setHeaders(req)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.CodeVectorIndex, err, "pinecone: describe index")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.CodeVectorIndex, err, "pinecone: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.E(domain.CodeVectorIndex, "pinecone: describe index (status %d): %s",
			resp.StatusCode, string(body))
	}

	var desc indexDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, domain.Wrap(domain.CodeVectorIndex, err, "pinecone: decode index description")
	}
	return &desc, nil
}

func (x *Index) createIndex(ctx context.Context) error {
	reqBody := createIndexRequest{
		Name:      x.indexName,
		Dimension: x.dimension,
		Metric:    x.metric,
		Spec:      indexSpec{Serverless: serverlessSpec{Cloud: x.cloud, Region: x.region}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.controlURL+"/indexes", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	x.setHeaders(req)

	resp, err := x.client.Do(req)
	if err != nil {
		return domain.Wrap(domain.CodeVectorIndex, err, "pinecone: create index")
	}
	defer resp.Body.Close()

	// 409 means another instance created it first, which is fine.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.E(domain.CodeVectorIndex, "pinecone: create index (status %d): %s",
			resp.StatusCode, string(body))
	}
	return nil
}

// dataPlanePost sends one JSON request to the index host. out may be
// nil when the response body is not needed.
func (x *Index) dataPlanePost(ctx context.Context, path string, in, out any) error {
	x.mu.Lock()
	host := x.hostURL
	x.mu.Unlock()
	if host == "" {
		return domain.E(domain.CodeVectorIndex, "pinecone: index not initialised, call EnsureReady first")
	}

	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	x.setHeaders(req)

	resp, err := x.client.Do(req)
	if err != nil {
		return domain.Wrap(domain.CodeVectorIndex, err, "pinecone: %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Wrap(domain.CodeVectorIndex, err, "pinecone: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return domain.E(domain.CodeVectorIndex, "pinecone: %s (status %d): %s",
			path, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return domain.Wrap(domain.CodeVectorIndex, err, "pinecone: decode response")
		}
	}
	return nil
}

func (x *Index) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", x.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", apiVersion)
}
