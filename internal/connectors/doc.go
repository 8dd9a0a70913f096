// Package connectors groups document acquisition adapters. Each
// connector knows how to retrieve a document's raw bytes from a
// specific source type; the web connector fetches over HTTP(S).
package connectors
