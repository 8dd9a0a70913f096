package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// RequestLogStore persists per-request audit records.
// Strictly observability: every call is best-effort and failures are
// logged, never propagated to the caller.
type RequestLogStore interface {
	// Record persists one request record.
	Record(ctx context.Context, rec domain.RequestRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.RequestRecord, error)

	// Close releases resources.
	Close() error
}
