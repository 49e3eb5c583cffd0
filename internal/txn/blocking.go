package txn

import (
	"context"
	"time"

	"github.com/zhenli1347/dragonfly/internal/status"
)

// WaitOnWatch is spec.md §4.6's wait_on_watch, the blocking primitive
// behind BLPOP/BRPOP/WAIT: run a hop that registers this transaction as a
// waiter on every participating shard, then suspend until awakened,
// cancelled, or deadline.
func (t *Transaction) WaitOnWatch(ctx context.Context, deadline time.Time) bool {
	t.awakeCh = make(chan struct{})

	watchCB := func(tt *Transaction, sh *EngineShard) status.Status {
		sd := tt.slot(sh.id)
		sd.mask.set(uint32(maskSuspendedQ), true)
		sh.blocking.AddWatched(sh.id, tt)
		return status.OK
	}
	t.scheduleSingleHopHoldingLock(ctx, watchCB)

	t.state.set(uint32(stateBlocked), true)

	var timer <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			t.state.set(uint32(stateBlocked), false)
			t.unwatchBlocking(ctx, true)
			return false
		}
		tm := time.NewTimer(d)
		defer tm.Stop()
		timer = tm.C
	}

	awakened := false
	select {
	case <-t.awakeCh:
		awakened = true
	case <-timer:
		awakened = false
	case <-t.cancelCh:
		awakened = false
	case <-ctx.Done():
		awakened = false
	}

	t.unwatchBlocking(ctx, !awakened)
	t.state.set(uint32(stateBlocked), false)
	return awakened
}

// unwatchBlocking is spec.md §4.6's unwatch_blocking, fanning out
// unwatch_shard_cb to every shard this transaction registered a watch on.
func (t *Transaction) unwatchBlocking(ctx context.Context, expired bool) {
	t.ScheduleSingleHop(ctx, func(tt *Transaction, sh *EngineShard) status.Status {
		sd := tt.slot(sh.id)
		if sd == nil {
			return status.OK
		}
		if expired {
			sh.db.Release(Exclusive, tt.GetShardKeys(sh.id))
			sd.mask.set(uint32(maskExpiredQ), true)
			sd.mask.set(uint32(maskKeylockAcquired), false)
		}
		sh.blocking.FinalizeWatched(sh.id, tt)
		sh.blocking.NotifyPending(sh.id)
		sh.pollExecution("unwatch", tt)
		return status.OK
	})
}

// NotifySuspended satisfies blocking.Waiter: it is invoked by the
// blocking.Controller when shardID reports new activity (spec.md §4.6
// notify_suspended). Returns true once t's wakeup condition is satisfied,
// telling the controller to stop tracking it.
func (t *Transaction) NotifySuspended(shardID int) bool {
	sd := t.slot(shardID)
	if sd == nil {
		return true
	}
	if sd.mask.has(uint32(maskExpiredQ)) {
		return false
	}
	if sd.mask.has(uint32(maskAwakedQ)) {
		return false
	}
	if !sd.mask.has(uint32(maskSuspendedQ)) {
		return false
	}
	sd.mask.set(uint32(maskSuspendedQ), false)
	sd.mask.set(uint32(maskAwakedQ), true)

	for {
		cur := t.notifyTxid.Load()
		if cur <= t.txid {
			break
		}
		if t.notifyTxid.CompareAndSwap(cur, t.txid) {
			break
		}
	}

	t.awakeOnce.Do(func() { close(t.awakeCh) })
	return true
}

// BreakOnShutdown is spec.md §6 break_on_shutdown: if this transaction is
// currently blocked, cancel its wait.
func (t *Transaction) BreakOnShutdown() {
	if !t.state.has(uint32(stateBlocked)) {
		return
	}
	t.state.set(uint32(stateCancelled), true)
	t.cancelOnce.Do(func() { close(t.cancelCh) })
}
