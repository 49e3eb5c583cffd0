package txn

import (
	"context"

	"github.com/zhenli1347/dragonfly/internal/metrics"
	"github.com/zhenli1347/dragonfly/internal/status"
)

// txEntry adapts a Transaction into a txqueue.Entry without txqueue
// needing to know about Transaction.
type txEntry struct{ txn *Transaction }

func (e *txEntry) TxID() int64 { return e.txn.txid }

// ScheduleSingleHop is the combined schedule+execute entry point for
// simple, non-multi commands (spec.md §6 schedule_single_hop): it takes
// the fast path when the transaction is confined to one shard and is not
// part of an atomic multi, else falls back to the general Schedule +
// Execute sequence.
func (t *Transaction) ScheduleSingleHop(ctx context.Context, cb Callback) status.Status {
	if t.uniqueShardCnt == 0 {
		return status.OK
	}
	if t.uniqueShardCnt == 1 && !t.isGlobal() && !t.isAtomicMulti() {
		return t.scheduleAndExecuteFastPath(ctx, cb, true)
	}
	if st := t.Schedule(ctx); st != status.OK {
		return st
	}
	return t.Execute(ctx, cb, true)
}

// scheduleSingleHopHoldingLock is ScheduleSingleHop with the quickie
// optimization disabled: the hop always takes the real key lock on its one
// shard, even when uncontended, so the lock outlives the hop instead of
// being released (or never taken at all) on return. The blocking watch
// registration hop (blocking.go WaitOnWatch) needs this: a suspended waiter
// must hold KEYLOCK_ACQUIRED, or a producer touching the same key would
// also qualify for the quickie path and run inline, never calling
// NotifyPending.
func (t *Transaction) scheduleSingleHopHoldingLock(ctx context.Context, cb Callback) status.Status {
	if t.uniqueShardCnt == 0 {
		return status.OK
	}
	if t.uniqueShardCnt == 1 && !t.isGlobal() && !t.isAtomicMulti() {
		return t.scheduleAndExecuteFastPath(ctx, cb, false)
	}
	if st := t.Schedule(ctx); st != status.OK {
		return st
	}
	return t.Execute(ctx, cb, true)
}

// scheduleAndExecuteFastPath is spec.md §4.3's "fast path
// (schedule-and-execute-unique-shard)". allowQuickie gates step 1 (the
// lock-free inline run); when false every caller is forced through the
// queued branch below, which always takes the real key lock.
func (t *Transaction) scheduleAndExecuteFastPath(ctx context.Context, cb Callback, allowQuickie bool) status.Status {
	t.cb = cb
	t.resetHop()
	t.state.set(uint32(stateExec)|uint32(stateExecConcluding), true)
	t.runCount.Store(1)
	t.useCount.Add(1)
	sd := t.shardData[0]
	sd.isArmed.Store(true)

	t.shards.Shard(t.uniqueShardID).Post(func(sh *EngineShard) {
		defer t.releaseUse()

		if allowQuickie && sh.canRunQuickie(t) {
			sd.isArmed.Store(false)
			metrics.ScheduledTotal.WithLabelValues("fast_quickie").Inc()
			sh.quickRuns++
			res := cb(t, sh)
			t.setLocalResult(res)
			sh.maybeAutoJournal(t, sh.id, res)
			sd.mask.set(uint32(maskOutOfOrder), true)
			t.finishRun()
			return
		}

		metrics.ScheduledTotal.WithLabelValues("fast_queued").Inc()
		txid := t.shards.NextTxID()
		t.txid = txid
		sh.acquireKeysFor(t, sd)
		tok := sh.queue.Insert(&txEntry{txn: t})
		sd.pqTok, sd.hasTok = tok, true
		sd.mask.set(uint32(maskActive)|uint32(maskKeylockAcquired), true)
		// Leave isArmed set: runInShard (reached via pollExecution) is
		// what clears it, the same as the general multi-shard Execute
		// path.
		sh.pollExecution("fast_path_queued", t)
	})

	t.awaitHop(ctx)
	return t.LocalResult()
}

func (t *Transaction) awaitHop(ctx context.Context) {
	select {
	case <-t.hopChan():
	case <-ctx.Done():
	}
}

// canRunQuickie implements spec.md §4.3 step 1: the shard lock is free and
// every required key lock is uncontended, so the callback can run
// in-line without ever touching the tx queue.
func (sh *EngineShard) canRunQuickie(t *Transaction) bool {
	if !sh.wide.Check(Exclusive) {
		return false
	}
	keys := t.GetShardKeys(sh.id)
	return sh.db.CheckLock(Exclusive, keys)
}

func (sh *EngineShard) acquireKeysFor(t *Transaction, sd *shardSlot) {
	if t.isGlobal() {
		return
	}
	keys := t.GetShardKeys(sh.id)
	sh.db.Acquire(Exclusive, keys)
}

// activeShards returns the shard ids the general scheduler path must fan
// out to (spec.md §4.3 "choose the set of active shards").
func (t *Transaction) activeShards() []int {
	if t.isGlobal() {
		ids := make([]int, t.shards.Size())
		for i := range ids {
			ids[i] = i
		}
		return ids
	}
	ids := make([]int, len(t.shardData))
	for i, sd := range t.shardData {
		ids[i] = sd.shardID
	}
	return ids
}

type scheduleOutcome struct {
	shardID int
	granted bool
	ok      bool
}

// Schedule is the general, multi-shard scheduling loop (spec.md §4.3
// "slow path"): it keeps retrying with a fresh txid until every active
// shard accepts the transaction.
func (t *Transaction) Schedule(ctx context.Context) status.Status {
	active := t.activeShards()
	if len(active) == 0 {
		t.state.set(uint32(stateSched), true)
		return status.OK
	}

	// Under a Global multi, StartMultiGlobal already holds every shard-wide
	// lock until UnlockMulti; acquiring again here would block forever.
	if t.isGlobal() && (t.multi == nil || t.multi.mode != Global) {
		t.shards.RunBriefInParallel(func(sh *EngineShard) {
			sh.wide.Acquire(Exclusive)
		}, func(id int) bool { return contains(active, id) })
	}

	for {
		txid := t.shards.NextTxID()
		t.txid = txid

		out := make(chan scheduleOutcome, len(active))
		for _, id := range active {
			id := id
			t.shards.Shard(id).Post(func(sh *EngineShard) {
				granted, ok := sh.scheduleInShard(t, txid)
				out <- scheduleOutcome{id, granted, ok}
			})
		}

		allOK, allGranted := true, true
		succeeded := make([]int, 0, len(active))
		for i := 0; i < len(active); i++ {
			select {
			case r := <-out:
				if r.ok {
					succeeded = append(succeeded, r.shardID)
				} else {
					allOK = false
				}
				if !r.granted {
					allGranted = false
				}
			case <-ctx.Done():
				return status.SyntaxErr
			}
		}

		if allOK {
			t.state.set(uint32(stateSched), true)
			metrics.ScheduledTotal.WithLabelValues("general").Inc()
			if allGranted && !t.isGlobal() && (t.multi == nil || t.multi.mode == LockAhead) {
				t.state.set(uint32(stateOOO), true)
				for _, sd := range t.shardData {
					sd.mask.set(uint32(maskOutOfOrder), true)
				}
			}
			return status.OK
		}

		metrics.ScheduleRetries.Inc()
		type cancelResult struct {
			id       int
			unblocked bool
		}
		cancelled := make(chan cancelResult, len(succeeded))
		for _, id := range succeeded {
			id := id
			t.shards.Shard(id).Post(func(sh *EngineShard) {
				cancelled <- cancelResult{id, sh.cancelInShard(t)}
			})
		}
		var needsNudge []int
		for range succeeded {
			r := <-cancelled
			if r.unblocked {
				needsNudge = append(needsNudge, r.id)
			}
		}
		for _, id := range needsNudge {
			id := id
			t.shards.Shard(id).Post(func(sh *EngineShard) {
				sh.pollExecution("cancel_cleanup", nil)
			})
		}

		select {
		case <-ctx.Done():
			return status.SyntaxErr
		default:
		}
	}
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// scheduleInShard is spec.md §4.3's schedule_in_shard, run on sh's own
// goroutine.
func (sh *EngineShard) scheduleInShard(t *Transaction, txid int64) (granted bool, ok bool) {
	if sh.committedTxid >= txid {
		return false, false
	}

	sd := t.slot(sh.id)
	keys := t.GetShardKeys(sh.id)

	preLocked := t.multi != nil && t.multi.mode == LockAhead
	// LOCK_INCREMENTAL defers the real Acquire to run_in_shard
	// (acquireIncrementalLocks), which is also what records the refcount
	// UnlockMulti later releases; acquiring here too would leave that
	// bookkeeping out of sync with what is actually held.
	deferred := t.multi != nil && t.multi.mode == LockIncremental

	granted = true
	if t.isGlobal() {
		// Shard-wide lock already acquired up front by Schedule, or by
		// StartMultiGlobal for a Global multi.
	} else if preLocked {
		// LOCK_AHEAD already holds every key exclusively from
		// StartMultiLockedAhead; re-acquiring per hop would drift the
		// refcount UnlockMulti later releases by a fixed amount.
		granted = true
	} else {
		if !sh.wide.Check(Exclusive) {
			granted = false
		}
		for _, k := range keys {
			if sh.locks.Check(k, Exclusive) {
				granted = false
			}
		}
		if !deferred {
			sh.db.Acquire(Exclusive, keys)
		}
	}

	if !granted && !sh.queue.Empty() && !(txid < sh.queue.TailScore()) {
		if !t.isGlobal() && !preLocked && !deferred {
			sh.db.Release(Exclusive, keys)
		}
		return granted, false
	}

	tok := sh.queue.Insert(&txEntry{txn: t})
	if sd != nil {
		sd.pqTok, sd.hasTok = tok, true
		mask := uint32(maskActive)
		if !deferred {
			mask |= uint32(maskKeylockAcquired)
		}
		sd.mask.set(mask, true)
	}
	return granted, true
}

// cancelInShard is spec.md §4.3's cancel_in_shard: undo a provisional
// schedule attempt, reporting whether a new queue head was exposed.
func (sh *EngineShard) cancelInShard(t *Transaction) (unblockedHead bool) {
	sd := t.slot(sh.id)
	if sd == nil || !sd.hasTok {
		return false
	}
	head, _ := sh.queue.Head()
	wasHead := head != nil && head.(*txEntry).txn == t

	sh.queue.Remove(sd.pqTok)
	sd.hasTok = false
	sd.mask.set(uint32(maskKeylockAcquired), false)

	preLocked := t.multi != nil && t.multi.mode == LockAhead
	deferred := t.multi != nil && t.multi.mode == LockIncremental
	if !t.isGlobal() && !preLocked && !deferred {
		sh.db.Release(Exclusive, t.GetShardKeys(sh.id))
	}
	return wasHead && !sh.queue.Empty()
}
