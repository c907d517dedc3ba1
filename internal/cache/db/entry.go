package db

import (
	"sync/atomic"
	"unsafe"
)

// Entry is an immutable value with an absolute expiration time.
// Only touchedAt changes after creation; overwriting a key stores a new Entry.
type Entry[V any] struct {
	value     V
	expiresAt int64        // unix nano
	weight    int64        // bytes, fixed at creation
	touchedAt atomic.Int64 // unix nano (used in LRU algo.)
}

// NewEntry builds an entry. payloadWeight is the caller's estimate of the value size in bytes.
func NewEntry[V any](value V, expiresAt, payloadWeight, now int64) *Entry[V] {
	e := &Entry[V]{value: value, expiresAt: expiresAt}
	e.weight = int64(unsafe.Sizeof(*e)) + max(payloadWeight, 0)
	e.touchedAt.Store(now)
	return e
}

func (e *Entry[V]) Value() V                 { return e.value }
func (e *Entry[V]) ExpiresAt() int64         { return e.expiresAt }
func (e *Entry[V]) Weight() int64            { return e.weight }
func (e *Entry[V]) TouchedAt() int64         { return e.touchedAt.Load() }
func (e *Entry[V]) Touch(now int64)          { e.touchedAt.Store(now) }
func (e *Entry[V]) IsExpired(now int64) bool { return now >= e.expiresAt }
