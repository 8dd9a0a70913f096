// Package httpapi exposes the document question-answering pipeline
// over HTTP. It is a driving adapter: request parsing, validation,
// authentication and error shaping live here, while all processing is
// delegated to the core query service.
//
// # Routes
//
//   - GET  /health        liveness, no auth
//   - POST /api/v1/run    process a document question batch
//   - GET  /api/v1/status provider connectivity and index statistics
//
// /api/v1 routes require a bearer token.
package httpapi
