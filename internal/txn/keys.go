package txn

import (
	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/keyindex"
	"github.com/zhenli1347/dragonfly/internal/shardargs"
	"github.com/zhenli1347/dragonfly/internal/status"
)

// InitByArgs is the one-shot non-multi transaction constructor (spec.md
// §6 init_by_args): derive the command's key index (C4), distribute its
// keys across shards (C5), and return a Transaction ready for
// ScheduleSingleHop.
func InitByArgs(ss *ShardSet, cid *command.Descriptor, dbIndex int, fullArgs [][]byte) (*Transaction, status.Status) {
	t := newTransaction(ss, cid, dbIndex, fullArgs)

	idx, st := keyindex.Determine(cid, fullArgs)
	if st != status.OK {
		return nil, st
	}
	if cid.Flags.Has(command.GlobalTrans) {
		// GLOBAL_TRANS has no keys of its own, but its callback still
		// needs to run on every shard, so every shard gets an (inactive
		// w.r.t. keys, active w.r.t. execution) slot.
		n := ss.Size()
		t.shardData = make([]*shardSlot, n)
		for i := 0; i < n; i++ {
			sd := &shardSlot{shardID: i, argStart: -1, argCount: -1}
			sd.mask.set(uint32(maskActive), true)
			t.shardData[i] = sd
		}
		t.uniqueShardCnt = n
		t.uniqueShardID = -1
		return t, status.OK
	}
	if idx.Start < 0 && idx.Bonus < 0 {
		// A variadic command with zero keys (spec.md §4.2: "If
		// key_index.start == argc ... return immediately with no shard
		// data").
		t.uniqueShardCnt = 0
		t.uniqueShardID = -1
		return t, status.OK
	}

	res := shardargs.Distribute(fullArgs, idx, ss.Size())
	t.adoptDistribution(res, cid.Flags.Has(command.ReverseMapping), len(fullArgs))
	return t, status.OK
}

// adoptDistribution flattens a shardargs.Result into T.args/shardData,
// exactly the "flatten buckets into T.args in shard-order" step of
// spec.md §4.2. shardargs.Distribute already omits empty shards, so the
// "compress back to length 1" rule falls out for free: a single-slot
// Result already looks like the fast path's shard_data[0].
func (t *Transaction) adoptDistribution(res *shardargs.Result, reverseMapping bool, argc int) {
	var reverse []int
	if reverseMapping {
		reverse = make([]int, argc)
	}

	pos := 0
	for _, slot := range res.Slots {
		start := pos
		sd := &shardSlot{shardID: slot.ShardID, argStart: start, argCount: len(slot.Args)}
		sd.mask.set(uint32(maskActive), true)
		t.shardData = append(t.shardData, sd)
		for i, a := range slot.Args {
			t.args = append(t.args, a)
			t.keyMask = append(t.keyMask, slot.IsKey[i])
			if reverseMapping {
				reverse[start+i] = slot.Reverse[i]
			}
		}
		pos += len(slot.Args)
	}

	t.uniqueShardCnt = len(res.Slots)
	if t.uniqueShardCnt == 1 {
		t.uniqueShardID = res.Slots[0].ShardID
		t.shardData[0].argStart = -1
		t.shardData[0].argCount = -1
	} else {
		t.uniqueShardID = -1
	}
	if reverseMapping {
		t.reverseIndex = reverse
	}
}
