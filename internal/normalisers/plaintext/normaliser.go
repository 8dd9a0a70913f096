// Package plaintext provides the fallback normaliser for text
// documents.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"text/html",
	}
}

// Normalise passes the bytes through as text, replacing invalid UTF-8
// so downstream chunking never sees broken runes.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, domain.E(domain.CodeDocumentProcessing, "plaintext: empty document")
	}

	text := string(raw.Content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.E(domain.CodeDocumentProcessing, "plaintext: document contains no text")
	}

	return &domain.Document{
		Text: text,
		Meta: domain.DocumentMeta{
			Type:      "text",
			Size:      len(raw.Content),
			SourceRef: normalisers.SourceRef(raw.URI),
		},
	}, nil
}
