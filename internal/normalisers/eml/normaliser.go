// Package eml provides a normaliser for EML (email) documents.
package eml

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"message/rfc822",
	}
}

// Normalise converts an email into plain text: a header block with
// sender, recipient, date and subject, followed by the message body.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, domain.E(domain.CodeDocumentProcessing, "eml: empty document")
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.Wrap(domain.CodeDocumentProcessing, err, "eml: parsing message")
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))
	date := msg.Header.Get("Date")

	body, err := extractBody(msg)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	if from != "" {
		content.WriteString("From: ")
		content.WriteString(from)
		content.WriteString("\n")
	}
	if to != "" {
		content.WriteString("To: ")
		content.WriteString(to)
		content.WriteString("\n")
	}
	if date != "" {
		content.WriteString("Date: ")
		content.WriteString(date)
		content.WriteString("\n")
	}
	if subject != "" {
		content.WriteString("Subject: ")
		content.WriteString(subject)
		content.WriteString("\n")
	}
	content.WriteString("\n")
	content.WriteString(body)

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, domain.E(domain.CodeDocumentProcessing, "eml: message contains no extractable text")
	}

	return &domain.Document{
		Text: text,
		Meta: domain.DocumentMeta{
			Type:      "eml",
			Size:      len(raw.Content),
			SourceRef: normalisers.SourceRef(raw.URI),
		},
	}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody extracts the text content from an email message,
// preferring the text/plain part of multipart messages.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", domain.Wrap(domain.CodeDocumentProcessing, readErr, "eml: reading body")
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", domain.Wrap(domain.CodeDocumentProcessing, err, "eml: reading body")
	}
	return string(body), nil
}

// extractMultipartBody walks a multipart body and returns the first
// text/plain part, falling back to the first text/* part.
func extractMultipartBody(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		content, err := io.ReadAll(body)
		if err != nil {
			return "", domain.Wrap(domain.CodeDocumentProcessing, err, "eml: reading body")
		}
		return string(content), nil
	}

	var fallback string
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", domain.Wrap(domain.CodeDocumentProcessing, err, "eml: reading multipart body")
		}

		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		content, err := io.ReadAll(part)
		if err != nil {
			continue
		}

		if partType == "text/plain" {
			return string(content), nil
		}
		if fallback == "" && strings.HasPrefix(partType, "text/") {
			fallback = string(content)
		}
	}
	return fallback, nil
}
