package blocking_test

import (
	"testing"
	"time"

	"github.com/zhenli1347/dragonfly/internal/blocking"
)

type fakeWaiter struct {
	satisfy bool
	calls   int
}

func (w *fakeWaiter) NotifySuspended(shardID int) bool {
	w.calls++
	return w.satisfy
}

func TestAddWatchedTracksAwakenedCount(t *testing.T) {
	c := blocking.New(2)
	w := &fakeWaiter{}
	c.AddWatched(0, w)
	if got := c.AwakenedTransactions(0); got != 1 {
		t.Errorf("AwakenedTransactions(0) = %d, want 1", got)
	}
	if got := c.AwakenedTransactions(1); got != 0 {
		t.Errorf("AwakenedTransactions(1) = %d, want 0 (different shard)", got)
	}
}

func TestNotifyPendingRemovesSatisfiedWaiters(t *testing.T) {
	c := blocking.New(1)
	w := &fakeWaiter{satisfy: true}
	c.AddWatched(0, w)
	c.NotifyPending(0)
	if w.calls != 1 {
		t.Errorf("NotifySuspended called %d times, want 1", w.calls)
	}
	if got := c.AwakenedTransactions(0); got != 0 {
		t.Errorf("AwakenedTransactions(0) = %d, want 0 after a satisfied wakeup", got)
	}
}

func TestNotifyPendingKeepsUnsatisfiedWaiters(t *testing.T) {
	c := blocking.New(1)
	w := &fakeWaiter{satisfy: false}
	c.AddWatched(0, w)
	c.NotifyPending(0)
	if got := c.AwakenedTransactions(0); got != 1 {
		t.Errorf("AwakenedTransactions(0) = %d, want 1 (still waiting)", got)
	}
}

func TestFinalizeWatchedRemovesRegardlessOfOutcome(t *testing.T) {
	c := blocking.New(1)
	w := &fakeWaiter{satisfy: false}
	c.AddWatched(0, w)
	c.FinalizeWatched(0, w)
	if got := c.AwakenedTransactions(0); got != 0 {
		t.Errorf("AwakenedTransactions(0) = %d, want 0 after FinalizeWatched", got)
	}
}

func TestWaitChanClosesOnNotifyPending(t *testing.T) {
	c := blocking.New(1)
	ch := c.WaitChan(0)
	done := make(chan struct{})
	go func() {
		c.NotifyPending(0)
		close(done)
	}()
	<-done
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("WaitChan's channel did not close after NotifyPending")
	}
}

func TestWaitChanIsPerShard(t *testing.T) {
	c := blocking.New(2)
	ch0 := c.WaitChan(0)
	c.NotifyPending(1)
	select {
	case <-ch0:
		t.Errorf("shard 0's channel closed after notifying shard 1")
	default:
	}
}
