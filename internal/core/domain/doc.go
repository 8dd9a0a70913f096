// Package domain defines the core business entities for docquery.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: Opaque bytes downloaded from a document URL
//   - Document: Normalised plain text plus metadata
//   - Chunk / EmbeddedChunk: Word-window slices of a document
//   - RetrievedPassage: A chunk returned by similarity retrieval
//   - Answer: A synthesised answer to one question
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
