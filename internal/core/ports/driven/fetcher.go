package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// DocumentFetcher downloads document bytes from a URL and detects
// their type. The core never fetches or parses binary formats itself.
type DocumentFetcher interface {
	// Fetch downloads the document and returns the raw bytes with a
	// detected MIME type. Download or size-limit failures are
	// DOCUMENT_PROCESSING_ERROR.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}
