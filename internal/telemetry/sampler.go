package telemetry

import (
	"github.com/Borislavv/go-ash-feed/internal/evictor"
)

// Source is the cache being observed.
type Source interface {
	Len() int64
	Mem() int64
	CacheMetrics() (hits, misses, expired, hardEvictedItems, hardEvictedBytes int64)
}

type sampler struct {
	cache   Source
	evictor evictor.Evictor
}

func newSampler(c Source, e evictor.Evictor) sampler {
	return sampler{cache: c, evictor: e}
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hits    uint64
	misses  uint64
	expired uint64

	softScans        uint64
	softHits         uint64
	softEvictedItems uint64
	softEvictedBytes uint64
	hardEvictedItems uint64
	hardEvictedBytes uint64
}

func (s sampler) snapshot() snapshot {
	hits, misses, expired, hardItems, hardBytes := s.cache.CacheMetrics()
	softScans, softHits, softItems, softBytes := s.evictor.Metrics()

	return snapshot{
		hits:    uint64(max(hits, 0)),
		misses:  uint64(max(misses, 0)),
		expired: uint64(max(expired, 0)),

		softScans:        uint64(max(softScans, 0)),
		softHits:         uint64(max(softHits, 0)),
		softEvictedItems: uint64(max(softItems, 0)),
		softEvictedBytes: uint64(max(softBytes, 0)),
		hardEvictedItems: uint64(max(hardItems, 0)),
		hardEvictedBytes: uint64(max(hardBytes, 0)),
	}
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:    delta(prev.hits, cur.hits),
		misses:  delta(prev.misses, cur.misses),
		expired: delta(prev.expired, cur.expired),

		softScans:        delta(prev.softScans, cur.softScans),
		softHits:         delta(prev.softHits, cur.softHits),
		softEvictedItems: delta(prev.softEvictedItems, cur.softEvictedItems),
		softEvictedBytes: delta(prev.softEvictedBytes, cur.softEvictedBytes),
		hardEvictedItems: delta(prev.hardEvictedItems, cur.hardEvictedItems),
		hardEvictedBytes: delta(prev.hardEvictedBytes, cur.hardEvictedBytes),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
