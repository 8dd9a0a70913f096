package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RequestContext identifies one document-processing request. It is
// created at the top of a run and flows through every stage; the
// namespace it names lives exactly as long as the request.
type RequestContext struct {
	// RequestID is unique per request.
	RequestID string

	// Namespace is the request-scoped vector index partition,
	// "temp_" + RequestID. Never reused across requests.
	Namespace string

	// StartTime is when processing began.
	StartTime time.Time
}

// NewRequestContext creates a request context with a fresh unique ID
// and its derived namespace.
func NewRequestContext() RequestContext {
	buf := make([]byte, 5)
	rand.Read(buf)
	id := fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
	return RequestContext{
		RequestID: id,
		Namespace: "temp_" + id,
		StartTime: time.Now(),
	}
}

// QueryRequest is a validated document question batch.
type QueryRequest struct {
	// DocumentURL locates the document to download and process.
	DocumentURL string

	// Questions are the natural-language questions to answer,
	// in caller order.
	Questions []string
}

// DocumentInfo summarises the processed document for the response
// metadata block.
type DocumentInfo struct {
	Type       string
	Size       int
	Chunks     int
	TextLength int
}

// ResultMetadata is the per-request metadata block returned with the
// answers.
type ResultMetadata struct {
	RequestID        string
	ProcessingTimeMs int64
	DocumentInfo     DocumentInfo
	QuestionCount    int
	AvgConfidence    int
	Timestamp        time.Time
}

// QueryResult is the outcome of one full pipeline run: exactly one
// Answer per input question, in input order, regardless of
// per-question failures.
type QueryResult struct {
	Answers  []Answer
	Metadata ResultMetadata
}

// RequestRecord is the audit row persisted per completed or failed
// request. Persistence is best-effort observability, never on the
// response-critical path.
type RequestRecord struct {
	RequestID        string
	DocumentType     string
	DocumentSize     int
	ChunkCount       int
	QuestionCount    int
	AvgConfidence    int
	ProcessingTimeMs int64
	FailedStage      string
	CreatedAt        time.Time
}
