package domain

// RawDocument represents opaque bytes downloaded from a document URL.
// It is the fetcher's output before normalisation.
type RawDocument struct {
	// URI is the original location the bytes were fetched from.
	URI string

	// MIMEType is the detected content type (e.g. "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// DocumentMeta describes a processed document. It travels with the
// request so that answer synthesis can name the document type and
// source in its grounding prompt.
type DocumentMeta struct {
	// Type is the detected document format ("pdf", "docx", "eml", "text").
	Type string

	// Size is the raw document size in bytes.
	Size int

	// SourceRef is a truncated reference to where the document came
	// from. Never the full URL; presigned URLs carry credentials.
	SourceRef string

	// Pages is the page count where the format reports one, else 0.
	Pages int
}

// Document is the normalised plain-text form of a downloaded document.
type Document struct {
	// Text is the full extracted text.
	Text string

	// Meta describes the source document.
	Meta DocumentMeta
}
