// Package txn is the transaction coordinator itself: Transaction, the
// per-shard engine, the scheduler, executor, multi-mode manager and
// blocking path (spec.md §2 C6-C9, §3, §4.3-§4.6).
package txn

import "sync/atomic"

// coordState is Transaction.coordinator_state, a bitset over the hop-level
// flags spec.md §3 describes.
type coordState uint32

const (
	stateSched coordState = 1 << iota
	stateOOO
	stateExec
	stateExecConcluding
	stateBlocked
	stateCancelled
)

// bits is a small atomic bitset helper shared by coordState and localMask,
// since both need the same set/clear/test-under-CAS discipline and Go has
// no generic atomic bitset in the standard library.
type bits struct{ v atomic.Uint32 }

func (b *bits) set(mask uint32, on bool) {
	for {
		old := b.v.Load()
		var next uint32
		if on {
			next = old | mask
		} else {
			next = old &^ mask
		}
		if next == old || b.v.CompareAndSwap(old, next) {
			return
		}
	}
}

func (b *bits) has(mask uint32) bool { return b.v.Load()&mask == mask }

// localMask is PerShardData.local_mask (spec.md §3).
type localMask uint32

const (
	maskActive localMask = 1 << iota
	maskKeylockAcquired
	maskSuspendedQ
	maskAwakedQ
	maskExpiredQ
	maskOutOfOrder
)
