package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches
// vectors. EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - Gemini (embedding-001, 768 dimensions)
//   - OpenAI-compatible inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// Implementations truncate over-long input to provider limits and
	// report an empty or malformed provider vector as an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g. 768).
	// This is fixed per deployment and must match the VectorIndex
	// configuration; a mismatch is a hard error.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup and by the status endpoint.
	Ping(ctx context.Context) error
}
