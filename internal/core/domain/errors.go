package domain

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code surfaced to callers.
// Codes never change once published; clients key retry and alerting
// behaviour off them.
type Code string

const (
	// CodeConfiguration indicates invalid startup configuration.
	// Always fatal; the process should not serve traffic.
	CodeConfiguration Code = "CONFIGURATION_ERROR"

	// CodeValidation indicates a malformed request shape.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeDocumentProcessing indicates the document could not be
	// downloaded or parsed into text.
	CodeDocumentProcessing Code = "DOCUMENT_PROCESSING_ERROR"

	// CodeEmbedding indicates the embedding provider failed or
	// returned a malformed vector.
	CodeEmbedding Code = "EMBEDDING_ERROR"

	// CodeVectorIndex indicates the vector index provider failed.
	CodeVectorIndex Code = "VECTOR_INDEX_ERROR"

	// CodeAnswerGeneration indicates the generative model could not
	// be reached or returned a provider error.
	CodeAnswerGeneration Code = "ANSWER_GENERATION_ERROR"

	// CodeProcessing is the catch-all for unclassified failures.
	CodeProcessing Code = "PROCESSING_ERROR"
)

// Error is a structured domain error carrying a stable code alongside
// a human-readable message. Adapters wrap provider failures into an
// Error at the boundary; nothing above the adapters inspects raw
// provider errors.
type Error struct {
	// Code is the stable machine-readable classification.
	Code Code

	// Message is the human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error with the given code and formatted message.
func E(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error with the given code, message, and cause.
// A nil cause is allowed and behaves like E.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from an error chain.
// Unclassified errors report CodeProcessing.
func CodeOf(err error) Code {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code
	}
	return CodeProcessing
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
