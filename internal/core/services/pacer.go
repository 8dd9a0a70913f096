package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed minimum interval between successive
// operations. It spaces out provider calls (embedding batches,
// per-question LLM calls) without hand-rolled sleeps, and honours
// context cancellation while waiting.
//
// A zero-interval Pacer never waits, which keeps tests fast.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with the given interval between operations.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next operation may proceed or the context is
// cancelled. The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
