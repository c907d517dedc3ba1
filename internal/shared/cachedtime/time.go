// Package cachedtime provides a coarse clock which is refreshed by a ticker
// instead of calling time.Now on every read.
package cachedtime

import (
	"context"
	"sync/atomic"
	"time"
)

const DefaultResolution = 10 * time.Millisecond

// Clock caches the current time with the given resolution.
// After its context is done it falls back to time.Now.
type Clock struct {
	nowUnix atomic.Int64
	closed  atomic.Bool
}

// New starts a ticking clock which lives until ctx is done.
func New(ctx context.Context, resolution time.Duration) *Clock {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	c := &Clock{}
	c.nowUnix.Store(time.Now().UnixNano())
	go c.run(ctx, resolution)
	return c
}

func (c *Clock) run(ctx context.Context, resolution time.Duration) {
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()
	defer c.closed.Store(true)

	for {
		select {
		case <-ctx.Done():
			return
		case tt := <-ticker.C:
			c.nowUnix.Store(tt.UnixNano())
		}
	}
}

func (c *Clock) Now() time.Time {
	if c.closed.Load() {
		return time.Now()
	}
	return time.Unix(0, c.nowUnix.Load())
}

func (c *Clock) UnixNano() int64 {
	if c.closed.Load() {
		return time.Now().UnixNano()
	}
	return c.nowUnix.Load()
}

func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
