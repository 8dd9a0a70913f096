// Package web provides the document fetcher that downloads documents
// over HTTP and detects their MIME type.
package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.DocumentFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 100 << 20 // 100 MB

	userAgent = "docquery/1.0"
)

// MIME types the pipeline understands.
const (
	MIMEPDF       = "application/pdf"
	MIMEDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEEmail     = "message/rfc822"
	MIMEPlainText = "text/plain"
)

// extensionMIMETypes maps URL path extensions to MIME types. The
// extension wins over everything else because callers link documents
// by name.
var extensionMIMETypes = map[string]string{
	".pdf":  MIMEPDF,
	".docx": MIMEDocx,
	".doc":  MIMEDocx,
	".eml":  MIMEEmail,
	".txt":  MIMEPlainText,
	".text": MIMEPlainText,
	".md":   MIMEPlainText,
}

// Config holds configuration for the web fetcher.
type Config struct {
	// Timeout is the whole-download timeout (default: 30s).
	Timeout time.Duration

	// MaxBodySize caps the downloaded document size in bytes
	// (default: 100 MB).
	MaxBodySize int64
}

// Fetcher downloads documents over HTTP(S).
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
}

// New creates a web fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxBodySize: cfg.MaxBodySize,
	}
}

// Fetch downloads the document at the given URL and detects its MIME
// type from the URL extension, the Content-Type header, and finally
// the leading bytes of the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawDocument, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, domain.E(domain.CodeValidation, "invalid document URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDocumentProcessing, err, "downloading document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.E(domain.CodeDocumentProcessing, "downloading document: status %d", resp.StatusCode)
	}

	// Read one byte past the cap to tell "exactly at the limit" apart
	// from "too large".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, domain.Wrap(domain.CodeDocumentProcessing, err, "reading document body")
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, domain.E(domain.CodeDocumentProcessing, "document exceeds %d byte limit", f.maxBodySize)
	}
	if len(body) == 0 {
		return nil, domain.E(domain.CodeDocumentProcessing, "document is empty")
	}

	mimeType := detectMIMEType(parsed, resp.Header.Get("Content-Type"), body)
	logger.Debug("fetched %s: %d bytes, %s", rawURL, len(body), mimeType)

	return &domain.RawDocument{
		URI:      rawURL,
		MIMEType: mimeType,
		Content:  body,
	}, nil
}

// detectMIMEType resolves the document type: URL extension first, then
// the Content-Type header, then magic bytes. Unrecognised documents
// default to PDF, by far the most common upload.
func detectMIMEType(u *url.URL, contentType string, body []byte) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if mime, ok := extensionMIMETypes[ext]; ok {
		return mime
	}

	if contentType != "" {
		ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		switch {
		case ct == MIMEPDF, ct == MIMEDocx, ct == MIMEEmail:
			return ct
		case strings.HasPrefix(ct, "text/"):
			return MIMEPlainText
		}
	}

	return sniffMIMEType(body)
}

// sniffMIMEType inspects leading magic bytes.
func sniffMIMEType(body []byte) string {
	switch {
	case bytes.HasPrefix(body, []byte("%PDF-")):
		return MIMEPDF
	case bytes.HasPrefix(body, []byte("PK")):
		// ZIP container; DOCX is the only zip-based format handled.
		return MIMEDocx
	case bytes.HasPrefix(body, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		// OLE compound document (legacy Office).
		return MIMEDocx
	default:
		return MIMEPDF
	}
}
