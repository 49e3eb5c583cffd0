// Package shardargs buckets a command's keys by owning shard (spec.md
// §4.1, C5): turning a flat argument vector plus a keyindex.KeyIndex into
// one argument slice per shard that actually owns a key, so the scheduler
// only ever talks to shards with work to do.
//
// Grounded on godis's key/value split ahead of dispatch
// (other_examples/HDT3213-godis__doc.go); generalized here to also track,
// per bucketed argument, the position it came from in the original key
// range so REVERSE_MAPPING commands (MGET) can scatter per-shard results
// back into input order.
package shardargs

import (
	"sort"

	"github.com/zhenli1347/dragonfly/internal/keyindex"
	"github.com/zhenli1347/dragonfly/internal/sharding"
)

// Slot is one shard's share of a command's keys.
type Slot struct {
	ShardID int
	Args    [][]byte
	// Reverse[i] is the 0-based position within the command's main key
	// range that Args[i] came from, i.e. the identity
	// full_args[Index.Start+Reverse[i]*Index.Step] == Args[i] holds. A
	// bonus key, and any companion value riding alongside a key (step==2's
	// paired value, or a TrailingValue command's value payload), get
	// Reverse == -1, since neither is part of the reversible range.
	Reverse []int
	// IsKey[i] is true when Args[i] is an actual key rather than a
	// companion value; only keys may be handed to the lock table.
	IsKey []bool
}

// Result is the full shard breakdown of one command invocation.
type Result struct {
	Slots []*Slot
	// Unique is true when every key (and the bonus key, if any) landed on
	// the same shard — the scheduler's fast ("quickie") path condition.
	Unique  bool
	OneHost int // valid iff Unique; the single shard id touched
}

type bucketItem struct {
	arg  []byte
	vals [][]byte // companion values riding with arg, if any
	rev  int
}

// Distribute buckets args's keys (as described by idx) across numShards.
// When idx.Step == 2 (MSET-shaped), the value at i+1 accompanies the key at
// i. When idx.TrailingValue is set (a single fixed-position key like SET),
// every remaining argument after the key accompanies it.
func Distribute(args [][]byte, idx keyindex.KeyIndex, numShards int) *Result {
	buckets := make(map[int][]bucketItem)

	if idx.Start >= 0 {
		pos := 0
		for i := idx.Start; i <= idx.End; i += idx.Step {
			sid := sharding.Of(args[i], numShards)
			item := bucketItem{arg: args[i], rev: pos}
			switch {
			case idx.Step == 2:
				item.vals = append(item.vals, args[i+1])
			case idx.TrailingValue:
				item.vals = append(item.vals, args[i+1:]...)
			}
			buckets[sid] = append(buckets[sid], item)
			pos++
		}
	}
	if idx.Bonus >= 0 {
		sid := sharding.Of(args[idx.Bonus], numShards)
		buckets[sid] = append(buckets[sid], bucketItem{arg: args[idx.Bonus], rev: -1})
	}

	res := &Result{}
	for sid, items := range buckets {
		slot := &Slot{ShardID: sid}
		for _, it := range items {
			slot.Args = append(slot.Args, it.arg)
			slot.Reverse = append(slot.Reverse, it.rev)
			slot.IsKey = append(slot.IsKey, true)
			for _, v := range it.vals {
				slot.Args = append(slot.Args, v)
				slot.Reverse = append(slot.Reverse, -1)
				slot.IsKey = append(slot.IsKey, false)
			}
		}
		res.Slots = append(res.Slots, slot)
	}
	sort.Slice(res.Slots, func(i, j int) bool { return res.Slots[i].ShardID < res.Slots[j].ShardID })

	if len(res.Slots) == 1 {
		res.Unique = true
		res.OneHost = res.Slots[0].ShardID
	} else if len(res.Slots) == 0 {
		// GLOBAL_TRANS or a zero-key variadic command: no per-key slot,
		// fast path does not apply since there is no single owning shard.
		res.Unique = false
		res.OneHost = -1
	}
	return res
}

// ShardsTouched returns the ascending-by-shard-id list of shard ids with a
// non-empty slot, mirroring Transaction.unique_shard_cnt_ when > 1.
func (r *Result) ShardsTouched() []int {
	ids := make([]int, 0, len(r.Slots))
	for _, s := range r.Slots {
		ids = append(ids, s.ShardID)
	}
	return ids
}
