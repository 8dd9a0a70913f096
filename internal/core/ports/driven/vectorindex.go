package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// VectorIndex is a thin adapter over an external similarity-search
// service with namespace-scoped storage.
//
// Implementations are expected to return an explicit ready handle via
// EnsureReady rather than lazily initialising inside other calls; the
// orchestrator holds the handle for the process lifetime.
type VectorIndex interface {
	// EnsureReady lazily creates the backing index if absent
	// (declaring dimension and similarity metric up front) and polls
	// until the index reports ready, bounded by a maximum wait.
	// Idempotent; cheap once the index exists.
	EnsureReady(ctx context.Context) error

	// Upsert writes vectors into the given namespace. Every vector
	// must carry a non-empty ID and a values array; a malformed vector
	// fails the whole call before anything is sent. Writes are batched
	// internally to respect provider payload limits.
	Upsert(ctx context.Context, vectors []domain.StoredVector, namespace string) error

	// Query returns up to topK matches ordered by descending
	// similarity as reported by the provider. The caller applies any
	// score threshold; the index does not filter.
	Query(ctx context.Context, vector []float32, namespace string, topK int) ([]VectorMatch, error)

	// DeleteNamespace removes all vectors in the namespace.
	// Best-effort cleanup: callers treat failure as non-fatal.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Stats reports index statistics for the status endpoint.
	Stats(ctx context.Context, namespace string) (*IndexStats, error)
}

// VectorMatch is a single similarity match from the index.
type VectorMatch struct {
	// ID is the stored vector's ID.
	ID string

	// Score is the provider-reported similarity.
	Score float64

	// Metadata is the payload stored at upsert time.
	Metadata domain.VectorMetadata
}

// IndexStats summarises the backing index.
type IndexStats struct {
	// TotalVectors is the vector count across all namespaces.
	TotalVectors int

	// NamespaceVectors is the count within the queried namespace.
	NamespaceVectors int

	// Dimension is the index dimension.
	Dimension int

	// IndexFullness is the provider-reported fullness fraction.
	IndexFullness float64
}
