package evictor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu    sync.Mutex
	len   int64
	limit int64
}

func (f *fakeTarget) Len() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.len
}

func (f *fakeTarget) SoftMemoryLimitOvercome() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.len > f.limit
}

func (f *fakeTarget) SoftEvictUntilWithinLimit(int64) (freedBytes, evictedItems int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.len <= f.limit {
		return 0, 0
	}
	evictedItems = f.len - f.limit
	f.len = f.limit
	return evictedItems * 10, evictedItems
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestNew_NilConfigIsNoOp returns the no-op evictor when eviction is disabled.
func TestNew_NilConfigIsNoOp(t *testing.T) {
	ev := New(context.Background(), nil, discardLogger(), nil, &fakeTarget{})
	require.IsType(t, NoOpEvictor{}, ev)
}

// TestEvictionWorker_ForceCall evicts down to the soft limit on demand.
func TestEvictionWorker_ForceCall(t *testing.T) {
	target := &fakeTarget{len: 100, limit: 60}
	ev := New(context.Background(), &config.EvictionCfg{CallsPerSec: 1}, discardLogger(), clock.NewMock(), target)
	defer func() { require.NoError(t, ev.Close()) }()

	require.NoError(t, ev.ForceCall(time.Second))

	require.Eventually(t, func() bool {
		_, _, items, bytes := ev.Metrics()
		return items == 40 && bytes == 400
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int64(60), target.Len())
}

// TestEvictionWorker_ProviderTicks scans on each tick and dispatches when over the limit.
func TestEvictionWorker_ProviderTicks(t *testing.T) {
	clk := clock.NewMock()
	target := &fakeTarget{len: 10, limit: 5}
	ev := New(context.Background(), &config.EvictionCfg{CallsPerSec: 10}, discardLogger(), clk, target)
	defer func() { require.NoError(t, ev.Close()) }()

	require.Eventually(t, func() bool {
		clk.Add(100 * time.Millisecond)
		scans, hits, items, _ := ev.Metrics()
		return scans >= 1 && hits >= 1 && items == 5
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int64(5), target.Len())
}

// TestEvictionWorker_ForceCallAfterClose does not block once the worker is stopped.
func TestEvictionWorker_ForceCallAfterClose(t *testing.T) {
	ev := New(context.Background(), &config.EvictionCfg{}, discardLogger(), clock.New(), &fakeTarget{})
	require.NoError(t, ev.Close())

	require.NoError(t, ev.ForceCall(10*time.Millisecond))
}
