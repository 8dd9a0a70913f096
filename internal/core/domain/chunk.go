package domain

import "time"

// Chunk is a contiguous overlapping word-window slice of a document.
// IDs are dense and ordered starting at 0 and are unique only within
// one document, not globally.
type Chunk struct {
	// ID is the sequence-local chunk number.
	ID int

	// Text is the chunk content.
	Text string

	// StartWord is the index of the first word of this chunk within
	// the document's word sequence.
	StartWord int

	// EndWord is the index one past the last word of this chunk.
	EndWord int

	// WordCount is the number of words in this chunk. The final chunk
	// of a document may be shorter than the configured window size.
	WordCount int
}

// EmbeddedChunk pairs a chunk with its embedding vector. Pairing is
// explicit because batch embedding may drop chunks whose provider call
// failed: the embedded set can be a strict subset of the chunk set,
// so positional re-association against the original chunk list is a bug.
type EmbeddedChunk struct {
	// Chunk is the source chunk.
	Chunk Chunk

	// Embedding is the fixed-dimension vector for the chunk text.
	Embedding []float32
}

// VectorMetadata is the payload stored alongside a vector in the
// external index. It carries enough to reconstruct a RetrievedPassage
// from a query match without consulting any other store.
type VectorMetadata struct {
	Text        string
	ChunkID     int
	StartWord   int
	EndWord     int
	WordCount   int
	DocumentRef string
	RequestID   string
	CreatedAt   time.Time
}

// StoredVector is a vector written to the external index under a
// request-scoped namespace.
type StoredVector struct {
	// ID is globally unique across all requests.
	ID string

	// Values is the embedding, dimension fixed per deployment.
	Values []float32

	// Metadata is the stored payload.
	Metadata VectorMetadata
}

// SourceTier identifies which step of the retrieval fallback chain
// produced a passage.
type SourceTier string

const (
	// TierVectorIndex marks results from the external vector index.
	TierVectorIndex SourceTier = "vector_index"

	// TierInMemoryFallback marks results from the in-memory engine
	// after the index errored or returned nothing usable.
	TierInMemoryFallback SourceTier = "in_memory_fallback"

	// TierErrorFallback marks results from the last-resort in-memory
	// retry after both earlier tiers raised errors.
	TierErrorFallback SourceTier = "error_fallback"
)

// RetrievedPassage is a chunk returned by similarity retrieval for one
// question. Transient; produced per question and never persisted.
type RetrievedPassage struct {
	Text       string
	ChunkID    int
	StartWord  int
	EndWord    int
	WordCount  int
	Similarity float64
	SourceTier SourceTier
}
