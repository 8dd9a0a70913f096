package httpapi

import (
	"net/http"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// errorBody is the JSON error payload.
type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// errorResponse wraps every error the API returns.
type errorResponse struct {
	Error errorBody `json:"error"`
}

// Auth failure codes. Distinct from domain codes because they never
// leave this adapter.
const (
	codeAuthRequired      = "AUTH_REQUIRED"
	codeInvalidAuthFormat = "INVALID_AUTH_FORMAT"
	codeInvalidToken      = "INVALID_TOKEN"
	codeRouteNotFound     = "ROUTE_NOT_FOUND"
)

// statusFor maps a domain error code to an HTTP status. Provider
// outages are 503 so callers know to retry; a document that cannot be
// parsed is the caller's problem and gets 422.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeDocumentProcessing:
		return http.StatusUnprocessableEntity
	case domain.CodeEmbedding, domain.CodeVectorIndex, domain.CodeAnswerGeneration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorFor shapes a pipeline error for the response. In production
// mode internal detail is suppressed; the code alone is actionable.
func errorFor(err error, production bool) (int, errorResponse) {
	code := domain.CodeOf(err)
	status := statusFor(code)

	message := err.Error()
	if production && status >= http.StatusInternalServerError {
		message = "internal processing error"
	}
	return status, errorResponse{Error: errorBody{
		Code:    string(code),
		Message: message,
	}}
}
