// Package normalisers provides implementations of the Normaliser
// interface for the document formats the service accepts. Each
// normaliser knows how to extract plain text from a specific MIME
// type.
//
// Normalisers are registered with the Registry at startup; the
// pipeline resolves one per request from the fetcher's detected MIME
// type.
package normalisers
