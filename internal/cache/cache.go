// Package cache implements a generic key/value cache whose entries expire a fixed
// TTL after insertion. Expired entries are dropped lazily by the read that finds
// them; nothing sweeps the store in background.
package cache

import (
	"time"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/cache/db"
)

const spinsBackoff = 256

// Clock is the injectable time source. github.com/benbjohnson/clock and
// cachedtime.Clock both satisfy it.
type Clock interface {
	Now() time.Time
}

// Hasher maps a key onto a shard. Equal keys must hash equally.
type Hasher[K comparable] func(key K) uint64

// Weigher estimates the memory held by a value, in bytes.
type Weigher[V any] func(value V) int64

type Cacher[K comparable, V any] interface {
	Insert(key K, value V)
	Lookup(key K) (V, bool)
	Peek(key K) (V, bool)
	Remove(key K)
	CacheMetrics() (hits, misses, expired, hardEvictedItems, hardEvictedBytes int64)
	Clear()
	Len() int64
	Mem() int64
}

// Cache is safe for concurrent use; the synchronization lives entirely in the store.
type Cache[K comparable, V any] struct {
	cfg      *config.Cache
	ttl      int64
	clock    Clock
	weigh    Weigher[V]
	db       *db.Map[K, V]
	counters *counters

	softLimitItems int64
}

// New builds a cache. weigh may be nil, in which case only the entry overhead is accounted.
func New[K comparable, V any](cfg *config.Cache, clock Clock, hash Hasher[K], weigh Weigher[V]) *Cache[K, V] {
	mode := db.Sampling
	if cfg.Eviction.Enabled() && cfg.Eviction.IsListing || !cfg.Eviction.Enabled() && cfg.DB.Bounded() {
		mode = db.Listing
	}

	c := &Cache[K, V]{
		cfg:      cfg,
		ttl:      cfg.TTL.Nanoseconds(),
		clock:    clock,
		weigh:    weigh,
		db:       db.NewMap[K, V](cfg.DB.Shards, hash, mode),
		counters: newCounters(),
	}
	if cfg.Eviction.Enabled() {
		c.softLimitItems = int64(float64(cfg.DB.MaxEntries) * cfg.Eviction.SoftLimitCoefficient)
	}
	return c
}

// Insert stores value under key until now+TTL, replacing any previous entry.
func (c *Cache[K, V]) Insert(key K, value V) {
	now := c.clock.Now().UnixNano()
	c.db.Set(key, db.NewEntry(value, now+c.ttl, c.weight(value), now))

	if c.hardLimitOvercome() {
		freedBytes, items := c.db.EvictUntilWithinLimit(c.cfg.DB.SizeBytes, c.cfg.DB.MaxEntries, spinsBackoff)
		if freedBytes > 0 || items > 0 {
			c.counters.evictedHardLimitItems.Add(items)
			c.counters.evictedHardLimitBytes.Add(freedBytes)
		}
	}
}

// Lookup returns the value if present and not expired.
// An expired entry is removed as a side effect of the lookup which found it.
func (c *Cache[K, V]) Lookup(key K) (value V, ok bool) {
	entry, found := c.db.Get(key)
	if !found {
		c.counters.misses.Add(1)
		return value, false
	}

	now := c.clock.Now().UnixNano()
	if entry.IsExpired(now) {
		c.db.RemoveIf(key, entry)
		c.counters.expired.Add(1)
		c.counters.misses.Add(1)
		return value, false
	}

	entry.Touch(now)
	c.db.Touch(key)
	c.counters.hits.Add(1)
	return entry.Value(), true
}

// Peek is Lookup without side effects: it neither counts, touches nor removes.
func (c *Cache[K, V]) Peek(key K) (value V, ok bool) {
	entry, found := c.db.Get(key)
	if !found || entry.IsExpired(c.clock.Now().UnixNano()) {
		return value, false
	}
	return entry.Value(), true
}

// Remove drops key; a missing key is a no-op.
func (c *Cache[K, V]) Remove(key K) {
	c.db.Remove(key)
}

func (c *Cache[K, V]) Len() int64 { return c.db.Len() }
func (c *Cache[K, V]) Mem() int64 { return c.db.Mem() }
func (c *Cache[K, V]) Clear()     { c.db.Clear() }

func (c *Cache[K, V]) CacheMetrics() (hits, misses, expired, hardEvictedItems, hardEvictedBytes int64) {
	return c.counters.snapshot()
}

// SoftMemoryLimitOvercome reports whether the background evictor has work to do.
func (c *Cache[K, V]) SoftMemoryLimitOvercome() bool {
	if !c.cfg.Eviction.Enabled() || c.db.Len() == 0 {
		return false
	}
	return (c.cfg.DB.SizeBytes > 0 && c.db.Mem() > c.cfg.Eviction.SoftMemoryLimitBytes) ||
		(c.softLimitItems > 0 && c.db.Len() > c.softLimitItems)
}

func (c *Cache[K, V]) SoftEvictUntilWithinLimit(backoff int64) (freed, evicted int64) {
	if !c.cfg.Eviction.Enabled() {
		return 0, 0
	}
	var limitBytes int64
	if c.cfg.DB.SizeBytes > 0 {
		limitBytes = c.cfg.Eviction.SoftMemoryLimitBytes
	}
	return c.db.EvictUntilWithinLimit(limitBytes, c.softLimitItems, backoff)
}

func (c *Cache[K, V]) weight(value V) int64 {
	if c.weigh == nil {
		return 0
	}
	return c.weigh(value)
}

func (c *Cache[K, V]) hardLimitOvercome() bool {
	if c.db.Len() == 0 {
		return false
	}
	return (c.cfg.DB.SizeBytes > 0 && c.db.Mem() > c.cfg.DB.SizeBytes) ||
		(c.cfg.DB.MaxEntries > 0 && c.db.Len() > c.cfg.DB.MaxEntries)
}
