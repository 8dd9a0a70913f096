// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentFetcher: Downloads the document bytes from a URL
//   - Normaliser: Transforms raw documents into plain text
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Generative model completions for answer synthesis
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: External similarity search. Without it, or when it
//     is degraded, retrieval falls back to the in-memory engine over
//     the current request's embedded chunks.
//   - RequestLogStore: Per-request audit persistence. Failures are
//     logged and swallowed.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
