// Package rate throttles outbound remote fetches.
package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Limiter hands out at most limit tokens per second through a small buffered channel,
// so that waiters can give up on their own context instead of blocking in Take.
type Limiter struct {
	ch    chan struct{}
	l     ratelimit.Limiter
	limit int
}

// NewLimiter returns nil when limit <= 0; a nil *Limiter never blocks.
func NewLimiter(ctx context.Context, limit int) *Limiter {
	if limit <= 0 {
		return nil
	}
	brst := int(float64(limit) * 0.1)
	if brst < 1 {
		brst = 1
	}
	lim := &Limiter{
		limit: limit,
		ch:    make(chan struct{}, brst),
		l:     ratelimit.New(limit),
	}
	go lim.provider(ctx)
	return lim
}

func (l *Limiter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		l.l.Take()
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-l.ch:
		if !ok {
			return context.Canceled
		}
		return nil
	}
}

func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.limit
}
