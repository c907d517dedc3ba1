package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCounters_Snapshot verifies that counters correctly track and snapshot metrics.
func TestCounters_Snapshot(t *testing.T) {
	c := newCounters()

	hits, misses, expired, items, bytes := c.snapshot()
	require.Zero(t, hits+misses+expired+items+bytes)

	c.hits.Add(10)
	c.misses.Add(5)
	c.expired.Add(2)
	c.evictedHardLimitItems.Add(3)
	c.evictedHardLimitBytes.Add(1024)

	hits, misses, expired, items, bytes = c.snapshot()
	require.Equal(t, int64(10), hits)
	require.Equal(t, int64(5), misses)
	require.Equal(t, int64(2), expired)
	require.Equal(t, int64(3), items)
	require.Equal(t, int64(1024), bytes)
}

// TestCounters_Concurrent verifies thread-safety.
func TestCounters_Concurrent(t *testing.T) {
	c := newCounters()

	const numGoroutines = 10
	const opsPerGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Go(func() {
			for j := 0; j < opsPerGoroutine; j++ {
				c.hits.Add(1)
				c.misses.Add(1)
			}
		})
	}
	wg.Wait()

	hits, misses, _, _, _ := c.snapshot()
	require.Equal(t, int64(numGoroutines*opsPerGoroutine), hits)
	require.Equal(t, int64(numGoroutines*opsPerGoroutine), misses)
}
