package normalisers

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// sourceRefMaxLen caps the stored source reference.
const sourceRefMaxLen = 100

// Registry maps MIME types to normalisers.
type Registry struct {
	byMIME map[string]driven.Normaliser
}

// NewRegistry creates a registry over the given normalisers. Later
// registrations win on MIME type collisions.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byMIME: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for all its supported MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	for _, mime := range n.SupportedMIMETypes() {
		r.byMIME[mime] = n
	}
}

// ForMIMEType returns the normaliser registered for the given MIME
// type.
func (r *Registry) ForMIMEType(mimeType string) (driven.Normaliser, error) {
	n, ok := r.byMIME[mimeType]
	if !ok {
		return nil, domain.E(domain.CodeDocumentProcessing, "unsupported document type: %s", mimeType)
	}
	return n, nil
}

// SourceRef produces the reference stored in document metadata: the
// URL without its query string (presigned URLs carry credentials
// there), truncated to a displayable length.
func SourceRef(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		u.RawQuery = ""
		u.Fragment = ""
		uri = u.String()
	}
	uri = strings.TrimSpace(uri)
	if len(uri) > sourceRefMaxLen {
		uri = uri[:sourceRefMaxLen] + "..."
	}
	return uri
}
