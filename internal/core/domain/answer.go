package domain

// AnswerSource is a truncated passage reference attached to an Answer
// for caller-side traceability.
type AnswerSource struct {
	// ChunkID is the source chunk number within the document.
	ChunkID int

	// Preview is the passage text truncated to a short excerpt.
	Preview string

	// Similarity is the retrieval score of the passage.
	Similarity float64

	// SourceTier records which retrieval tier produced the passage.
	SourceTier SourceTier
}

// Answer is the synthesised response to a single question.
type Answer struct {
	// Text is the answer body.
	Text string

	// Confidence is the model-reported confidence clamped to [0,100].
	Confidence int

	// Reasoning explains how the answer was derived, or quotes the
	// underlying failure when IsError is set.
	Reasoning string

	// Sources lists the passages the answer was grounded on.
	Sources []AnswerSource

	// IsError marks a placeholder answer for a question whose
	// processing failed. Error answers are excluded from aggregate
	// confidence.
	IsError bool
}
