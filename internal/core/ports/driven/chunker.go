package driven

import "github.com/custodia-labs/docquery/internal/core/domain"

// Chunker splits normalised document text into overlapping word windows.
type Chunker interface {
	// Chunk splits text into chunks with positional metadata. Empty
	// input yields no chunks.
	Chunk(text string) []domain.Chunk
}
