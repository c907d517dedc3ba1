package db

import (
	"container/list"
	"runtime"
	"sync"
	"sync/atomic"
)

const rLockSpins = 8

// Shard is an independent segment of the sharded map.
// It keeps per-shard counters read with atomics so global readers can avoid locks.
type Shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]*Entry[V]

	id  uint64
	mem int64 // total weight in bytes (atomic)
	len int64 // number of items (atomic)

	// LRU (enabled in Listing mode)
	lruOn bool
	lru   *list.List
	lidx  map[K]*list.Element
}

// NewShard creates a shard with an empty map.
func NewShard[K comparable, V any](id uint64) *Shard[K, V] {
	return &Shard[K, V]{id: id, items: make(map[K]*Entry[V])}
}

func (sh *Shard[K, V]) ID() uint64    { return sh.id }
func (sh *Shard[K, V]) Weight() int64 { return atomic.LoadInt64(&sh.mem) }
func (sh *Shard[K, V]) Len() int64    { return atomic.LoadInt64(&sh.len) }

// Set inserts or replaces a key. Returns deltas for global aggregations.
func (sh *Shard[K, V]) Set(key K, new *Entry[V]) (bytesDelta int64, lenDelta int64) {
	sh.Lock()
	if old, hit := sh.items[key]; hit {
		sh.items[key] = new
		sh.lruOnAccessUnlocked(key)

		lenDelta = 0
		bytesDelta = new.Weight() - old.Weight()
		atomic.AddInt64(&sh.mem, bytesDelta)
	} else {
		sh.items[key] = new
		sh.lruOnInsertUnlocked(key)

		lenDelta = 1
		bytesDelta = new.Weight()
		atomic.AddInt64(&sh.len, lenDelta)
		atomic.AddInt64(&sh.mem, bytesDelta)
	}
	sh.Unlock()
	return
}

// Get reads a value under a shared lock.
func (sh *Shard[K, V]) Get(key K) (value *Entry[V], hit bool) {
	sh.RLock()
	value, hit = sh.items[key]
	sh.RUnlock()
	return
}

// Remove deletes a key under the write lock.
func (sh *Shard[K, V]) Remove(key K) (freedBytes int64, hit bool) {
	sh.Lock()
	freedBytes, hit = sh.RemoveUnlocked(key)
	sh.Unlock()
	return
}

// RemoveIf deletes key only while it still maps to expected.
// A concurrent overwrite between the caller's read and this call wins.
func (sh *Shard[K, V]) RemoveIf(key K, expected *Entry[V]) (freedBytes int64, hit bool) {
	sh.Lock()
	if cur, ok := sh.items[key]; ok && cur == expected {
		freedBytes, hit = sh.RemoveUnlocked(key)
	}
	sh.Unlock()
	return
}

// RemoveUnlocked deletes a key when the shard is already exclusively locked.
func (sh *Shard[K, V]) RemoveUnlocked(key K) (freedBytes int64, hit bool) {
	var old *Entry[V]
	if old, hit = sh.items[key]; hit {
		delete(sh.items, key)
		sh.lruOnDeleteUnlocked(key)

		freedBytes = old.Weight()
		atomic.AddInt64(&sh.mem, -freedBytes)
		atomic.AddInt64(&sh.len, -1)
	}
	return
}

// Clear removes all entries and returns (freedBytes, itemsRemoved).
func (sh *Shard[K, V]) Clear() (freedBytes int64, items int64) {
	sh.Lock()
	items = atomic.LoadInt64(&sh.len)
	freedBytes = atomic.LoadInt64(&sh.mem)

	sh.items = make(map[K]*Entry[V])

	atomic.StoreInt64(&sh.len, 0)
	atomic.StoreInt64(&sh.mem, 0)
	if sh.lru != nil {
		sh.lru.Init()
	}
	if sh.lidx != nil {
		clear(sh.lidx)
	}
	sh.Unlock()
	return
}

func (sh *Shard[K, V]) tryRLock() bool {
	for i := 0; i < rLockSpins; i++ {
		if sh.TryRLock() {
			return true
		}
		runtime.Gosched()
	}
	return false
}
