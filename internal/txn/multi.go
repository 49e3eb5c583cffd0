package txn

import (
	"context"

	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/keyindex"
	"github.com/zhenli1347/dragonfly/internal/shardargs"
	"github.com/zhenli1347/dragonfly/internal/sharding"
	"github.com/zhenli1347/dragonfly/internal/status"
)

// MultiMode is MultiData.mode (spec.md §3, §4.5).
type MultiMode int

const (
	NotDetermined MultiMode = iota
	Global
	LockAhead
	LockIncremental
	NonAtomic
)

type keyLockCount struct{ shared, exclusive int }

// multiData is MultiData (spec.md §3), present only for MULTI/EXEC,
// EVAL, EVALSHA transactions.
type multiData struct {
	mode              MultiMode
	lockCounts        map[string]*keyLockCount
	keys              [][]byte
	shardJournalWrite map[int]bool
	locksRecorded     bool
}

// StartMultiGlobal selects the GLOBAL multi-tx mode (spec.md §4.5):
// acquire every shard's wide lock up front; used by FLUSHDB-like
// operations inside MULTI/EXEC.
func (t *Transaction) StartMultiGlobal(ctx context.Context) status.Status {
	t.multi = &multiData{mode: Global}
	t.shards.RunBriefInParallel(func(sh *EngineShard) {
		sh.wide.Acquire(Exclusive)
	}, nil)
	return status.OK
}

// StartMultiLockedAhead selects LOCK_AHEAD (spec.md §4.5): lock the whole
// transaction's key set once, up front, discovered from the EXEC queue's
// commands via keyindex+shardargs the same way a single command would be.
func (t *Transaction) StartMultiLockedAhead(ctx context.Context, keys [][]byte) status.Status {
	md := &multiData{mode: LockAhead, lockCounts: make(map[string]*keyLockCount)}
	t.multi = md

	full := append([][]byte{nil}, keys...) // position 0 is a placeholder "command name" slot
	idx := keyindex.KeyIndex{Start: 1, End: len(full) - 1, Step: 1, Bonus: -1}
	res := shardargs.Distribute(full, idx, t.shards.Size())

	done := make(chan struct{}, len(res.Slots))
	for _, slot := range res.Slots {
		slot := slot
		t.shards.Shard(slot.ShardID).Post(func(sh *EngineShard) {
			sh.db.Acquire(Exclusive, slot.Args)
			done <- struct{}{}
		})
	}
	for range res.Slots {
		<-done
	}
	for _, slot := range res.Slots {
		for _, k := range slot.Args {
			md.lockCounts[string(k)] = &keyLockCount{exclusive: 1}
		}
	}
	md.locksRecorded = true
	return status.OK
}

// StartMultiLockedIncr selects LOCK_INCREMENTAL (spec.md §4.5): hops lock
// their own keys on entry to run_in_shard and accumulate refcounts;
// UnlockMulti releases them together.
func (t *Transaction) StartMultiLockedIncr() status.Status {
	t.multi = &multiData{mode: LockIncremental, lockCounts: make(map[string]*keyLockCount)}
	return status.OK
}

// StartMultiNonAtomic selects NON_ATOMIC (spec.md §4.5): each hop
// schedules like an independent transaction.
func (t *Transaction) StartMultiNonAtomic() status.Status {
	t.multi = &multiData{mode: NonAtomic}
	return status.OK
}

// MultiSwitchCmd resets T's per-hop fields between EXEC-queued commands
// while preserving multi (spec.md §3 Lifecycle, §6 multi_switch_cmd).
func (t *Transaction) MultiSwitchCmd(cid *command.Descriptor, dbIndex int, fullArgs [][]byte) status.Status {
	t.cid = cid
	t.dbIndex = dbIndex
	t.fullArgs = fullArgs
	t.cb = nil
	t.seqlock.Add(1)
	t.runCount.Store(0)
	t.state.set(uint32(stateExec)|uint32(stateExecConcluding), false)
	if t.multi.mode == NonAtomic {
		t.txid = 0
	}

	idx, st := keyindex.Determine(cid, fullArgs)
	if st != status.OK {
		return st
	}
	t.shardData = nil
	if cid.Flags.Has(command.GlobalTrans) || (idx.Start < 0 && idx.Bonus < 0) {
		if cid.Flags.Has(command.GlobalTrans) {
			n := t.shards.Size()
			t.shardData = make([]*shardSlot, n)
			for i := 0; i < n; i++ {
				sd := &shardSlot{shardID: i, argStart: -1, argCount: -1}
				sd.mask.set(uint32(maskActive), true)
				t.shardData[i] = sd
			}
			t.uniqueShardCnt = n
		} else {
			t.uniqueShardCnt = 0
		}
		t.uniqueShardID = -1
		return status.OK
	}

	res := shardargs.Distribute(fullArgs, idx, t.shards.Size())
	t.args = nil
	t.reverseIndex = nil
	t.keyMask = nil
	t.adoptDistribution(res, cid.Flags.Has(command.ReverseMapping), len(fullArgs))
	return status.OK
}

// UnlockMulti is spec.md §4.5/§4.7's unlock_multi: release every lock this
// multi-transaction accumulated and, for atomic modes, tell each shard it
// is leaving multi-transaction mode. Idempotent: a second call on an
// already-unlocked T is a no-op (spec.md §8).
func (t *Transaction) UnlockMulti() status.Status {
	if t.multi == nil {
		return status.OK
	}
	md := t.multi

	switch md.mode {
	case Global:
		t.shards.RunBriefInParallel(func(sh *EngineShard) {
			sh.wide.Release(Exclusive)
		}, nil)
	default:
		perShard := make(map[int]map[string]*keyLockCount)
		for k, c := range md.lockCounts {
			sid := sharding.Of([]byte(k), t.shards.Size())
			if perShard[sid] == nil {
				perShard[sid] = make(map[string]*keyLockCount)
			}
			perShard[sid][k] = c
		}
		done := make(chan struct{}, len(perShard))
		for sid, keys := range perShard {
			sid, keys := sid, keys
			t.shards.Shard(sid).Post(func(sh *EngineShard) {
				for k, c := range keys {
					if c.exclusive > 0 {
						sh.db.ReleaseCount(Exclusive, []byte(k), c.exclusive)
					}
					if c.shared > 0 {
						sh.db.ReleaseCount(Shared, []byte(k), c.shared)
					}
				}
				done <- struct{}{}
			})
		}
		for range perShard {
			<-done
		}
	}

	if md.mode != NonAtomic {
		t.shards.RunBriefInParallel(func(sh *EngineShard) {
			sh.shutdownMulti(t)
		}, nil)
	}

	t.multi = nil
	return status.OK
}

// shutdownMulti transitions the shard out of multi-transaction bookkeeping
// for t and polls the queue once more in case t's departure unblocked
// another transaction (spec.md §4.5's shutdown_multi external hook).
func (sh *EngineShard) shutdownMulti(t *Transaction) {
	delete(sh.multiShards, t.txid)
	sh.drainQueue()
}
