// Package pdf provides a PDF normaliser backed by the pdftotext
// command-line tool from poppler-utils.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// CommandRunner executes an external command and returns its stdout.
// Extracted as an interface so tests can run without pdftotext
// installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser using the system pdftotext binary.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/pdf",
	}
}

// Normalise extracts text from a PDF via pdftotext. The raw bytes are
// staged in a temp file because pdftotext reads from disk.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, domain.E(domain.CodeDocumentProcessing, "pdf: empty document")
	}

	tmpDir, err := os.MkdirTemp("", "docquery-pdf-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpFile := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(tmpFile, raw.Content, 0600); err != nil {
		return nil, fmt.Errorf("writing temp file: %w", err)
	}

	// -layout preserves column ordering, "-" streams text to stdout.
	output, err := n.runner.Run(ctx, "pdftotext", "-layout", tmpFile, "-")
	if err != nil {
		return nil, domain.Wrap(domain.CodeDocumentProcessing, err, "pdf: extracting text (is pdftotext installed?)")
	}

	text := strings.TrimSpace(string(output))
	if text == "" {
		return nil, domain.E(domain.CodeDocumentProcessing, "pdf: document contains no extractable text")
	}

	// pdftotext separates pages with form feeds.
	pages := strings.Count(string(output), "\f")
	if pages == 0 {
		pages = 1
	}

	return &domain.Document{
		Text: text,
		Meta: domain.DocumentMeta{
			Type:      "pdf",
			Size:      len(raw.Content),
			SourceRef: normalisers.SourceRef(raw.URI),
			Pages:     pages,
		},
	}, nil
}

// InstallInstructions returns human-readable guidance for installing
// the pdftotext dependency.
func InstallInstructions() string {
	return strings.TrimSpace(`
PDF support requires pdftotext from poppler-utils:
  macOS:  brew install poppler
  Debian: apt install poppler-utils
  Fedora: dnf install poppler-utils
`)
}
