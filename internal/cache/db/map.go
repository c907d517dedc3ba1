// Package db implements a sharded concurrent map intended for in-memory cache
// workloads. Every shard is guarded by its own RWMutex, so the map is safe for
// concurrent use without an outer locking layer. Global counters are atomics
// so they can be read without locks.
package db

import "sync/atomic"

// Map is a sharded concurrent map with precise global counters.
type Map[K comparable, V any] struct {
	mode LRUMode // eviction strategy
	hash func(K) uint64

	len  int64  // aggregated number of items (atomic)
	mem  int64  // aggregated weight in bytes (atomic)
	iter uint64 // round-robin cursor for NextShard()

	mask   uint64
	shards []*Shard[K, V]
}

// NewMap creates the map. numShards must be a power of two.
// In Listing mode every shard maintains an LRU list for exact tail eviction.
func NewMap[K comparable, V any](numShards int, hash func(K) uint64, mode LRUMode) *Map[K, V] {
	if numShards <= 0 || numShards&(numShards-1) != 0 {
		panic("db: number of shards must be a positive power of two")
	}
	m := &Map[K, V]{
		hash:   hash,
		mask:   uint64(numShards - 1),
		shards: make([]*Shard[K, V], numShards),
	}
	for id := range m.shards {
		m.shards[id] = NewShard[K, V](uint64(id))
	}

	if mode == Listing {
		m.useListingMode()
	} else {
		m.useSamplingMode()
	}
	return m
}

// Set inserts/replaces a value and adjusts global counters via per-shard deltas.
func (m *Map[K, V]) Set(key K, value *Entry[V]) {
	bytesDelta, lenDelta := m.Shard(key).Set(key, value)
	if bytesDelta != 0 {
		atomic.AddInt64(&m.mem, bytesDelta)
	}
	if lenDelta != 0 {
		atomic.AddInt64(&m.len, lenDelta)
	}
}

// Get reads a value.
func (m *Map[K, V]) Get(key K) (value *Entry[V], ok bool) {
	return m.Shard(key).Get(key)
}

// Remove deletes a key and adjusts global counters.
func (m *Map[K, V]) Remove(key K) (freedBytes int64, hit bool) {
	freedBytes, hit = m.Shard(key).Remove(key)
	if hit {
		atomic.AddInt64(&m.len, -1)
		atomic.AddInt64(&m.mem, -freedBytes)
	}
	return
}

// RemoveIf deletes key only if it still holds expected.
func (m *Map[K, V]) RemoveIf(key K, expected *Entry[V]) (freedBytes int64, hit bool) {
	freedBytes, hit = m.Shard(key).RemoveIf(key, expected)
	if hit {
		atomic.AddInt64(&m.len, -1)
		atomic.AddInt64(&m.mem, -freedBytes)
	}
	return
}

// Clear wipes all shards and fixes global counters atomically.
func (m *Map[K, V]) Clear() {
	for _, shard := range m.shards {
		freedBytes, items := shard.Clear()
		if freedBytes != 0 {
			atomic.AddInt64(&m.mem, -freedBytes)
		}
		if items != 0 {
			atomic.AddInt64(&m.len, -items)
		}
	}
}

func (m *Map[K, V]) Shard(key K) *Shard[K, V] { return m.shards[m.hash(key)&m.mask] }
func (m *Map[K, V]) NextShard() *Shard[K, V] {
	return m.shards[atomic.AddUint64(&m.iter, 1)&m.mask]
}
func (m *Map[K, V]) Len() int64 { return atomic.LoadInt64(&m.len) }
func (m *Map[K, V]) Mem() int64 { return atomic.LoadInt64(&m.mem) }

func (m *Map[K, V]) useListingMode() {
	m.mode = Listing
	for _, s := range m.shards {
		s.enableLRU()
	}
}

func (m *Map[K, V]) useSamplingMode() {
	m.mode = Sampling
	for _, s := range m.shards {
		s.disableLRU()
	}
}

// Touch moves key to the LRU head in Listing mode.
func (m *Map[K, V]) Touch(key K) {
	if m.mode != Listing {
		return
	}
	m.Shard(key).touchLRU(key)
}
