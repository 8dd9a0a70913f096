package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// Normaliser transforms raw document bytes into plain text.
// Each normaliser handles specific MIME types (e.g. PDF, DOCX).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise extracts plain text and document metadata from the
	// raw bytes. Parse failures are DOCUMENT_PROCESSING_ERROR.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry resolves the normaliser responsible for a MIME type.
type NormaliserRegistry interface {
	// ForMIMEType returns the normaliser registered for the given MIME
	// type, or an error when no normaliser handles it.
	ForMIMEType(mimeType string) (Normaliser, error)
}
