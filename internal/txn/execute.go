package txn

import (
	"context"
	"strconv"
	"time"

	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/journal"
	"github.com/zhenli1347/dragonfly/internal/metrics"
	"github.com/zhenli1347/dragonfly/internal/status"
)

// Execute is the general multi-shard hop driver (spec.md §4.4 execute):
// arm every participating shard's slot, publish the hop under a release
// store on run_count, and await completion.
func (t *Transaction) Execute(ctx context.Context, cb Callback, conclude bool) status.Status {
	t.cb = cb
	t.resetHop()
	t.state.set(uint32(stateExec), true)
	t.state.set(uint32(stateExecConcluding), conclude)

	t.useCount.Add(int32(t.uniqueShardCnt))
	for _, sd := range t.shardData {
		sd.isArmed.Store(true)
	}
	seq := t.seqlock.Load()
	t.runCount.Store(int32(t.uniqueShardCnt)) // release-ordered publish

	for _, sd := range t.shardData {
		sd := sd
		t.shards.Shard(sd.shardID).Post(func(sh *EngineShard) {
			defer t.releaseUse()
			if !sd.isArmed.Load() {
				t.finishRun()
				return
			}
			if t.seqlock.Load() != seq {
				t.finishRun()
				return
			}
			sh.pollExecution("exec_cb", t)
		})
	}

	t.awaitHop(ctx)
	return t.LocalResult()
}

// pollExecution instructs sh to progress its queue with respect to t
// (spec.md §6 EngineShard.poll_execution). t may be nil, used for the
// cancel_cleanup nudge that only wants the queue drained generally.
func (sh *EngineShard) pollExecution(tag string, t *Transaction) {
	if t != nil {
		sd := t.slot(sh.id)
		if sd != nil && !sd.hasTok {
			// Fast path: never queued, always eligible to run now.
			sh.runInShard(t)
			return
		}
	}
	sh.drainQueue()
}

// drainQueue repeatedly runs the queue head while the head is armed for
// its current hop; it stops at an unarmed head or an empty queue.
func (sh *EngineShard) drainQueue() {
	for {
		head, ok := sh.queue.Head()
		if !ok {
			return
		}
		ht := head.(*txEntry).txn
		sd := ht.slot(sh.id)
		if sd == nil || !sd.isArmed.Load() {
			// Head is queued but this hop hasn't armed it yet; nothing to
			// do until its own Execute posts a closure here.
			return
		}
		sh.runInShard(ht)
		newHead, stillThere := sh.queue.Head()
		if stillThere && newHead == head {
			// ht stayed at the head (e.g. a newly suspended blocker);
			// stop to avoid spinning on a transaction that cannot make
			// further progress this round.
			return
		}
	}
}

// runInShard is spec.md §4.4's run_in_shard.
func (sh *EngineShard) runInShard(t *Transaction) {
	start := time.Now()
	sd := t.slot(sh.id)
	sd.isArmed.Store(false)

	if t.multi != nil && t.multi.mode == LockIncremental {
		t.acquireIncrementalLocks(sh, sd)
	}

	// Snapshot pre-callback blocking state: the callback itself (e.g.
	// blocking.go's watchCB) may be what sets SUSPENDED_Q/AWAKED_Q on this
	// very hop, and FinalizeWatched must only fire for a watch that already
	// existed before this hop, not the one the callback just registered.
	wasSuspended := sd.mask.has(uint32(maskSuspendedQ))
	wasAwaked := sd.mask.has(uint32(maskAwakedQ))

	res := t.cb(t, sh)
	if t.uniqueShardCnt <= 1 {
		t.setLocalResult(res)
		t.cb = nil
	} else {
		t.setLocalResult(res)
	}

	concluding := t.state.has(uint32(stateExecConcluding))
	if concluding {
		sh.maybeAutoJournal(t, sh.id, res)
		if t.txid > sh.committedTxid {
			sh.committedTxid = t.txid
		}
	}

	if sd.hasTok {
		sh.queue.Remove(sd.pqTok)
		sd.hasTok = false
	}

	shouldRelease := concluding && !t.isAtomicMulti()
	if shouldRelease {
		if t.isGlobal() {
			sh.wide.Release(Exclusive)
		} else if !sd.mask.has(uint32(maskSuspendedQ)) || sd.mask.has(uint32(maskAwakedQ)) {
			sh.db.Release(Exclusive, t.GetShardKeys(sh.id))
			sd.mask.set(uint32(maskKeylockAcquired), false)
		}
		sd.mask.set(uint32(maskOutOfOrder), false)

		if sh.blocking != nil {
			if wasSuspended || wasAwaked {
				sh.blocking.FinalizeWatched(sh.id, t)
			}
			// A hop that has only just registered t's watch reports no new
			// activity; notifying here would wake t on its own registration.
			newlySuspended := !wasSuspended && sd.mask.has(uint32(maskSuspendedQ))
			if !newlySuspended {
				sh.blocking.NotifyPending(sh.id)
			}
		}
	}

	metrics.ExecuteDuration.WithLabelValues(shardLabel(sh.id)).Observe(time.Since(start).Seconds())
	t.finishRun()
}

func shardLabel(id int) string { return strconv.Itoa(id) }

func (t *Transaction) acquireIncrementalLocks(sh *EngineShard, sd *shardSlot) {
	if sd.mask.has(uint32(maskKeylockAcquired)) {
		return
	}
	keys := t.GetShardKeys(sh.id)
	sh.db.Acquire(Exclusive, keys)
	sd.mask.set(uint32(maskKeylockAcquired), true)
	if t.multi.lockCounts != nil {
		for _, k := range keys {
			c := t.multi.lockCounts[string(k)]
			if c == nil {
				c = &keyLockCount{}
				t.multi.lockCounts[string(k)] = c
			}
			c.exclusive++
		}
	}
}

// maybeAutoJournal is spec.md §4.7's auto-journal hook.
func (sh *EngineShard) maybeAutoJournal(t *Transaction, shardID int, res status.Status) {
	if sh.journal == nil {
		return
	}
	if !t.cid.Flags.Has(command.Write) || t.cid.Flags.Has(command.NoAutoJournal) {
		return
	}
	if res == status.OutOfMemory {
		metrics.OutOfMemoryTotal.Inc()
		sh.log.Warn("out of memory during write, skipping journal", journalFields(t, shardID)...)
		return
	}
	payload := t.GetShardArgs(shardID)
	sh.journal.Record(journal.Entry{
		TxID:    t.txid,
		ShardID: shardID,
		Command: t.cid.Name,
		Args:    payload,
		At:      nowProto(),
	})
}
