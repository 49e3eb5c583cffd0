// Package sharding implements the one stable hash every thread in the
// process uses to map a key to its owning shard (spec.md §4.1, C1).
//
// Grounded on the teacher's utils/common.go, which hashes a key to a shard
// with hash/fnv; generalized here to take the shard count as a parameter
// instead of returning a raw uint64, and exported since both the
// coordinator and every shard goroutine need to call it.
package sharding

import "hash/fnv"

// Of maps key to a shard id in [0, numShards). The hash must be stable
// across calls and across processes (spec.md requires "the same function
// ... on every thread"), which rules out anything seeded from process
// state such as Go's built-in map hash.
func Of(key []byte, numShards int) int {
	if numShards <= 0 {
		panic("sharding: numShards must be positive")
	}
	h := fnv.New64a()
	_, _ = h.Write(key)
	return int(h.Sum64() % uint64(numShards))
}
