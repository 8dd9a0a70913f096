package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// errorAnswerText is the placeholder body for a question whose
// processing failed. The request as a whole still succeeds.
const errorAnswerText = "I encountered an error while processing this question. Please try again."

// PipelineDeps bundles everything the pipeline orchestrates. Index and
// RequestLog may be nil; the pipeline degrades to in-memory retrieval
// and skips audit logging respectively.
type PipelineDeps struct {
	Fetcher       driven.DocumentFetcher
	Normalisers   driven.NormaliserRegistry
	Chunker       driven.Chunker
	Embedder      driven.EmbeddingService
	Batcher       *EmbedBatcher
	Retriever     *Retriever
	Synthesiser   *Synthesiser
	Index         driven.VectorIndex
	RequestLog    driven.RequestLogStore
	QuestionPacer *Pacer
}

// Pipeline runs the full document question-answering flow: fetch,
// normalise, chunk, embed, store, then one retrieval-and-synthesis
// round per question. Stages up to and including embedding are fatal
// on failure; everything after degrades per question.
type Pipeline struct {
	deps PipelineDeps
}

var _ driving.QueryService = (*Pipeline)(nil)

// NewPipeline creates the orchestrator from its stage dependencies.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Run processes one request end to end. The returned result always
// contains exactly one answer per question, in input order. An error
// return means the document itself could not be processed.
func (p *Pipeline) Run(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	reqCtx := domain.NewRequestContext()
	logger.Info("request %s: %d questions for %s", reqCtx.RequestID, len(req.Questions), req.DocumentURL)

	raw, err := p.deps.Fetcher.Fetch(ctx, req.DocumentURL)
	if err != nil {
		return nil, p.fail(ctx, reqCtx, "fetch", err)
	}

	norm, err := p.deps.Normalisers.ForMIMEType(raw.MIMEType)
	if err != nil {
		return nil, p.fail(ctx, reqCtx, "normalise", err)
	}
	doc, err := norm.Normalise(ctx, raw)
	if err != nil {
		return nil, p.fail(ctx, reqCtx, "normalise", err)
	}
	logger.Info("request %s: normalised %s document, %d bytes of text", reqCtx.RequestID, doc.Meta.Type, len(doc.Text))

	chunks := p.deps.Chunker.Chunk(doc.Text)
	if len(chunks) == 0 {
		return nil, p.fail(ctx, reqCtx, "chunk",
			domain.E(domain.CodeDocumentProcessing, "document contains no extractable text"))
	}

	embedded, err := p.deps.Batcher.EmbedChunks(ctx, chunks)
	if err != nil {
		return nil, p.fail(ctx, reqCtx, "embed", err)
	}
	if len(embedded) == 0 {
		return nil, p.fail(ctx, reqCtx, "embed",
			domain.E(domain.CodeEmbedding, "no chunk could be embedded"))
	}
	logger.Info("request %s: %d chunks, %d embedded", reqCtx.RequestID, len(chunks), len(embedded))

	stored := p.storeVectors(ctx, reqCtx, embedded, raw.URI)
	if stored {
		defer p.cleanup(reqCtx)
	}

	answers := make([]domain.Answer, len(req.Questions))
	for i, question := range req.Questions {
		if i > 0 {
			if err := p.deps.QuestionPacer.Wait(ctx); err != nil {
				return nil, p.fail(ctx, reqCtx, "answer", err)
			}
		}
		answers[i] = p.answerQuestion(ctx, reqCtx, question, embedded, doc.Meta)
	}

	result := &domain.QueryResult{
		Answers: answers,
		Metadata: domain.ResultMetadata{
			RequestID:        reqCtx.RequestID,
			ProcessingTimeMs: time.Since(reqCtx.StartTime).Milliseconds(),
			DocumentInfo: domain.DocumentInfo{
				Type:       doc.Meta.Type,
				Size:       doc.Meta.Size,
				Chunks:     len(chunks),
				TextLength: len(doc.Text),
			},
			QuestionCount: len(req.Questions),
			AvgConfidence: averageConfidence(answers),
			Timestamp:     time.Now().UTC(),
		},
	}

	p.record(ctx, domain.RequestRecord{
		RequestID:        reqCtx.RequestID,
		DocumentType:     doc.Meta.Type,
		DocumentSize:     doc.Meta.Size,
		ChunkCount:       len(chunks),
		QuestionCount:    len(req.Questions),
		AvgConfidence:    result.Metadata.AvgConfidence,
		ProcessingTimeMs: result.Metadata.ProcessingTimeMs,
		CreatedAt:        time.Now().UTC(),
	})

	logger.Info("request %s: done in %dms, avg confidence %d",
		reqCtx.RequestID, result.Metadata.ProcessingTimeMs, result.Metadata.AvgConfidence)
	return result, nil
}

// answerQuestion runs one retrieval-and-synthesis round. Failures
// degrade to a placeholder error answer so one bad question never
// takes down its batch.
func (p *Pipeline) answerQuestion(ctx context.Context, reqCtx domain.RequestContext, question string, embedded []domain.EmbeddedChunk, meta domain.DocumentMeta) domain.Answer {
	queryVec, err := p.deps.Embedder.Embed(ctx, question)
	if err != nil {
		logger.Error("request %s: question embedding failed: %v", reqCtx.RequestID, err)
		return errorAnswer(err)
	}

	passages := p.deps.Retriever.FindRelevantChunks(ctx, queryVec, embedded, reqCtx.Namespace)

	answer, err := p.deps.Synthesiser.Synthesise(ctx, question, passages, meta)
	if err != nil {
		logger.Error("request %s: answer synthesis failed: %v", reqCtx.RequestID, err)
		return errorAnswer(err)
	}
	return answer
}

// storeVectors writes the embedded chunks into the request namespace.
// Failure is non-fatal: retrieval falls back to the in-memory tier.
func (p *Pipeline) storeVectors(ctx context.Context, reqCtx domain.RequestContext, embedded []domain.EmbeddedChunk, documentRef string) bool {
	if p.deps.Index == nil {
		return false
	}

	if err := p.deps.Index.EnsureReady(ctx); err != nil {
		logger.Warn("request %s: vector index not ready, serving from memory: %v", reqCtx.RequestID, err)
		return false
	}

	now := time.Now().UTC()
	vectors := make([]domain.StoredVector, len(embedded))
	for i, e := range embedded {
		vectors[i] = domain.StoredVector{
			ID:     "chunk_" + uuid.NewString(),
			Values: e.Embedding,
			Metadata: domain.VectorMetadata{
				Text:        e.Chunk.Text,
				ChunkID:     e.Chunk.ID,
				StartWord:   e.Chunk.StartWord,
				EndWord:     e.Chunk.EndWord,
				WordCount:   e.Chunk.WordCount,
				DocumentRef: documentRef,
				RequestID:   reqCtx.RequestID,
				CreatedAt:   now,
			},
		}
	}

	if err := p.deps.Index.Upsert(ctx, vectors, reqCtx.Namespace); err != nil {
		logger.Warn("request %s: vector upsert failed, serving from memory: %v", reqCtx.RequestID, err)
		return false
	}
	return true
}

// cleanup removes the request namespace. Runs after the response is
// final, so failures are logged and swallowed.
func (p *Pipeline) cleanup(reqCtx domain.RequestContext) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.deps.Index.DeleteNamespace(ctx, reqCtx.Namespace); err != nil {
		logger.Warn("request %s: namespace cleanup failed: %v", reqCtx.RequestID, err)
		return
	}
	logger.Debug("request %s: cleaned up namespace %s", reqCtx.RequestID, reqCtx.Namespace)
}

// fail records a fatal stage failure and returns the error the caller
// should surface.
func (p *Pipeline) fail(ctx context.Context, reqCtx domain.RequestContext, stage string, err error) error {
	logger.Error("request %s: %s stage failed: %v", reqCtx.RequestID, stage, err)
	p.record(ctx, domain.RequestRecord{
		RequestID:        reqCtx.RequestID,
		ProcessingTimeMs: time.Since(reqCtx.StartTime).Milliseconds(),
		FailedStage:      stage,
		CreatedAt:        time.Now().UTC(),
	})
	return err
}

// record persists the audit row if a store is configured. Best-effort.
func (p *Pipeline) record(ctx context.Context, rec domain.RequestRecord) {
	if p.deps.RequestLog == nil {
		return
	}
	if err := p.deps.RequestLog.Record(ctx, rec); err != nil {
		logger.Warn("request %s: audit record failed: %v", rec.RequestID, err)
	}
}

func errorAnswer(err error) domain.Answer {
	return domain.Answer{
		Text:       errorAnswerText,
		Confidence: 0,
		Reasoning:  "Processing error: " + err.Error(),
		Sources:    []domain.AnswerSource{},
		IsError:    true,
	}
}

// averageConfidence is the rounded mean confidence over non-error
// answers, zero when every answer errored.
func averageConfidence(answers []domain.Answer) int {
	var sum, n int
	for _, a := range answers {
		if a.IsError {
			continue
		}
		sum += a.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
