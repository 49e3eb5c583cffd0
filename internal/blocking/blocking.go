// Package blocking implements the cross-shard wakeup machinery behind
// spec.md §4.6's blocking path (C9): a transaction that finds its watched
// keys absent (e.g. BLPOP on an empty list) suspends instead of failing,
// and is woken once some other transaction's write touches one of those
// keys.
//
// Grounded on the teacher's suspend/resume shape in
// tx/txmanager/txmanager.go (a goroutine parked on a channel until another
// goroutine signals it), generalized from a single commit-wait channel to
// spec.md's "blocking_ec" per-shard event count: one broadcast per shard
// that every watcher on that shard selects against, so a single key write
// does not have to fan out a wakeup to every individual waiter by key.
package blocking

import "sync"

// Waiter is the minimal view of a suspended transaction the controller
// needs. Kept deliberately small (rather than importing internal/txn) to
// avoid an import cycle, since internal/txn depends on this package.
type Waiter interface {
	// NotifySuspended is called when the shard this waiter is parked on
	// reports new activity; it returns true if the waiter's wakeup
	// condition is now satisfied and it should stop waiting.
	NotifySuspended(shardID int) bool
}

// eventCount is a generation counter with a broadcastable wait channel,
// the Go analogue of the original's "blocking_ec" (an event count you can
// wait on without holding a lock across the wait).
type eventCount struct {
	mu   sync.Mutex
	gen  uint64
	wake chan struct{}
}

func newEventCount() *eventCount {
	return &eventCount{wake: make(chan struct{})}
}

// Notify bumps the generation and wakes every current waiter.
func (ec *eventCount) Notify() {
	ec.mu.Lock()
	ec.gen++
	old := ec.wake
	ec.wake = make(chan struct{})
	ec.mu.Unlock()
	close(old)
}

// Chan returns the channel that closes on the next Notify call.
func (ec *eventCount) Chan() <-chan struct{} {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.wake
}

// Controller tracks suspended waiters per shard and wakes them on demand.
// One Controller is shared by every shard in the process (spec.md §6
// BlockingController).
type Controller struct {
	mu       sync.Mutex
	ec       []*eventCount       // one per shard
	watchers map[int][]Waiter    // shardID -> currently suspended waiters
}

// New returns a Controller sized for numShards shards.
func New(numShards int) *Controller {
	c := &Controller{
		ec:       make([]*eventCount, numShards),
		watchers: make(map[int][]Waiter),
	}
	for i := range c.ec {
		c.ec[i] = newEventCount()
	}
	return c
}

// AddWatched registers w as suspended on shardID, pending a future
// NotifyPending call for that shard (spec.md's wait_on_watch, the half
// that runs before blocking).
func (c *Controller) AddWatched(shardID int, w Waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers[shardID] = append(c.watchers[shardID], w)
}

// FinalizeWatched removes w from shardID's watcher list, used once a
// transaction stops waiting (woken, timed out, or shutting down) to avoid
// notifying a waiter that is no longer interested.
func (c *Controller) FinalizeWatched(shardID int, w Waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws := c.watchers[shardID]
	for i, x := range ws {
		if x == w {
			c.watchers[shardID] = append(ws[:i], ws[i+1:]...)
			return
		}
	}
}

// NotifyPending is called by a shard after committing a write that may
// satisfy a watcher (e.g. an LPUSH on a key some BLPOP is blocked on). It
// bumps the shard's event count and invokes NotifySuspended on every
// currently-registered watcher, dropping any whose condition is now
// satisfied.
func (c *Controller) NotifyPending(shardID int) {
	c.mu.Lock()
	ws := append([]Waiter(nil), c.watchers[shardID]...)
	ec := c.ec[shardID]
	c.mu.Unlock()

	ec.Notify()

	var stillWaiting []Waiter
	for _, w := range ws {
		if !w.NotifySuspended(shardID) {
			stillWaiting = append(stillWaiting, w)
		}
	}

	c.mu.Lock()
	c.watchers[shardID] = stillWaiting
	c.mu.Unlock()
}

// AwakenedTransactions returns the number of waiters currently parked on
// shardID, for introspection.
func (c *Controller) AwakenedTransactions(shardID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.watchers[shardID])
}

// WaitChan returns the channel a caller can select on to be woken the next
// time shardID's event count advances. WaitOnWatch does not use it; it
// waits on its own transaction's wakeup channel.
func (c *Controller) WaitChan(shardID int) <-chan struct{} {
	return c.ec[shardID].Chan()
}
