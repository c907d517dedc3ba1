// Package hash maps cache keys onto shards.
package hash

import "github.com/zeebo/xxh3"

// String hashes s with xxh3 without copying it.
func String(s string) uint64 {
	return xxh3.HashString(s)
}
