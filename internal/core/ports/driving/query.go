package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// QueryService runs the retrieval-augmented question-answering
// pipeline for one document and a batch of questions.
type QueryService interface {
	// Run processes the document and answers every question.
	// The result always contains exactly one answer per question, in
	// input order; per-question failures degrade to error answers
	// rather than aborting the batch. An error return means a fatal
	// pre-question stage failed (download, parse, chunk, embed).
	Run(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}
