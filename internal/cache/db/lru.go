package db

import (
	"container/list"
)

type LRUMode int

const (
	Listing LRUMode = iota
	Sampling
)

func (sh *Shard[K, V]) enableLRU() {
	sh.Lock()
	if sh.lru == nil {
		sh.lru = list.New()
		if sh.lidx == nil {
			sh.lidx = make(map[K]*list.Element, len(sh.items))
		}
		for k := range sh.items {
			sh.lidx[k] = sh.lru.PushFront(k)
		}
	}
	sh.lruOn = true
	sh.Unlock()
}

func (sh *Shard[K, V]) disableLRU() {
	sh.Lock()
	sh.lruOn = false
	sh.lru = nil
	sh.lidx = nil
	sh.Unlock()
}

// lruOnInsertUnlocked - is unsafe without shard.Lock due to it mutates the list.
func (sh *Shard[K, V]) lruOnInsertUnlocked(key K) {
	if !sh.lruOn || sh.lru == nil {
		return
	}
	if el := sh.lidx[key]; el != nil {
		sh.lru.MoveToFront(el)
		return
	}
	sh.lidx[key] = sh.lru.PushFront(key)
}

// lruOnAccessUnlocked - is unsafe without shard.Lock due to it mutates the list otherwise use touchLRU.
func (sh *Shard[K, V]) lruOnAccessUnlocked(key K) {
	if !sh.lruOn || sh.lru == nil {
		return
	}
	if el := sh.lidx[key]; el != nil {
		sh.lru.MoveToFront(el)
	}
}

// lruOnDeleteUnlocked - is unsafe without shard.Lock due to it mutates the list.
func (sh *Shard[K, V]) lruOnDeleteUnlocked(key K) {
	if !sh.lruOn || sh.lru == nil {
		return
	}
	if el := sh.lidx[key]; el != nil {
		sh.lru.Remove(el)
		delete(sh.lidx, key)
	}
}

// touchLRU - threadsafe, best effort: a contended shard skips the move.
func (sh *Shard[K, V]) touchLRU(key K) {
	if !sh.lruOn {
		return
	}
	if sh.TryLock() {
		if sh.lru != nil {
			if el := sh.lidx[key]; el != nil {
				sh.lru.MoveToFront(el)
			}
		}
		sh.Unlock()
	}
}

func (sh *Shard[K, V]) lruPeekTail() (key K, val *Entry[V], ok bool) {
	sh.RLock()
	defer sh.RUnlock()
	if !sh.lruOn || sh.lru == nil {
		return key, nil, false
	}
	el := sh.lru.Back()
	if el == nil {
		return key, nil, false
	}
	k := el.Value.(K)
	v, ok := sh.items[k]
	if !ok {
		return key, nil, false
	}
	return k, v, true
}
