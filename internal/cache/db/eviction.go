package db

import (
	"runtime"
	"sync/atomic"
)

const shardsSample, keysSample = 4, 8

// EvictUntilWithinLimit removes the least recently touched entries until the map
// fits into limitBytes and limitItems or backoff attempts are spent.
// A non-positive limit is not enforced.
func (m *Map[K, V]) EvictUntilWithinLimit(limitBytes, limitItems, backoff int64) (freed, evicted int64) {
	for backoff > 0 && m.overLimit(limitBytes, limitItems) {
		backoff--

		key, victim, found := m.PickVictim()
		if !found {
			runtime.Gosched()
			continue
		}
		if bytesFreed, hit := m.RemoveIf(key, victim); hit {
			freed += bytesFreed
			evicted++
		}
	}
	return freed, evicted
}

func (m *Map[K, V]) overLimit(limitBytes, limitItems int64) bool {
	if m.Len() == 0 {
		return false
	}
	return (limitBytes > 0 && atomic.LoadInt64(&m.mem) > limitBytes) ||
		(limitItems > 0 && atomic.LoadInt64(&m.len) > limitItems)
}

// PickVictim returns the eviction candidate according to the map mode.
func (m *Map[K, V]) PickVictim() (key K, victim *Entry[V], ok bool) {
	if m.mode == Listing {
		return m.pickVictimByList()
	}
	return m.pickVictimBySample(shardsSample, keysSample)
}

// pickVictimByList compares the LRU tails of all non-empty shards.
func (m *Map[K, V]) pickVictimByList() (key K, victim *Entry[V], ok bool) {
	var bestAt int64
	for _, sh := range m.shards {
		if sh.Len() == 0 {
			continue
		}
		if k, v, ok2 := sh.lruPeekTail(); ok2 {
			at := v.TouchedAt()
			if !ok || at < bestAt {
				key, victim, bestAt, ok = k, v, at, true
			}
		}
	}
	return key, victim, ok
}

// pickVictimBySample inspects up to keysSample entries in up to shardsSample non-empty shards.
func (m *Map[K, V]) pickVictimBySample(shardsSample, keysSample int) (key K, victim *Entry[V], ok bool) {
	var (
		bestAt  int64
		visited int
	)
	for i := 0; i < len(m.shards) && visited < shardsSample; i++ {
		sh := m.NextShard()
		if sh.Len() == 0 {
			continue
		} else if !sh.tryRLock() {
			runtime.Gosched()
			continue
		}
		visited++

		toScanPerShard := keysSample
		for k, entry := range sh.items {
			at := entry.TouchedAt()
			if !ok || at < bestAt {
				key, victim, bestAt, ok = k, entry, at, true
			}
			if toScanPerShard--; toScanPerShard <= 0 {
				break
			}
		}
		sh.RUnlock()
	}
	return key, victim, ok
}
