// Package chunker provides an overlapping word-window text chunker.
package chunker

import (
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping words
// between consecutive chunks.
const DefaultChunkOverlap = 200

// Processor splits document text into overlapping word windows.
// Chunking is deterministic and pure: the same text always produces
// the same chunks, and no I/O happens here.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// An overlap at or above the chunk size would make the window stop
// advancing, so it is rejected as a configuration error rather than
// silently clamped.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		return nil, domain.E(domain.CodeConfiguration,
			"chunk overlap (%d) must be smaller than chunk size (%d)", p.overlap, p.chunkSize)
	}

	return p, nil
}

// ChunkSize returns the configured window size in words.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap in words.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits text into overlapping word windows. Consecutive chunks
// share exactly the configured overlap; the final chunk may be shorter
// than the window size. Chunk IDs are dense starting at 0.
func (p *Processor) Chunk(text string) []domain.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	estimated := (len(words) / step) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	id := 0
	for start := 0; start < len(words); start += step {
		end := start + p.chunkSize
		if end > len(words) {
			end = len(words)
		}

		window := words[start:end]
		content := strings.TrimSpace(strings.Join(window, " "))
		if content == "" {
			// Whitespace-only window, skip but keep scanning.
			if end == len(words) {
				break
			}
			continue
		}

		chunks = append(chunks, domain.Chunk{
			ID:        id,
			Text:      content,
			StartWord: start,
			EndWord:   end,
			WordCount: len(window),
		})
		id++

		if end == len(words) {
			break
		}
	}

	return chunks
}
