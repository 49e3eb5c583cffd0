package txn

import (
	"sync"

	"github.com/zhenli1347/dragonfly/internal/locktable"
)

// Mode re-exports locktable.Mode under the core's own vocabulary (spec.md
// §6 DbSlice/ShardLock take a lock "mode" argument); kept as an alias
// rather than a new type so callers can pass locktable.Shared/Exclusive
// directly.
type Mode = locktable.Mode

const (
	Shared    = locktable.Shared
	Exclusive = locktable.Exclusive
)

// DbSlice is the external per-shard datastore/lock collaborator (spec.md
// §6). No datastore ships with this repository — internal/locktable's
// Table is the reference implementation the shard engine drives through
// this interface.
type DbSlice interface {
	CheckLock(mode Mode, keys [][]byte) bool
	Acquire(mode Mode, keys [][]byte) bool
	Release(mode Mode, keys [][]byte)
	ReleaseCount(mode Mode, key []byte, count int)
}

// tableDbSlice adapts a *locktable.Table to DbSlice.
type tableDbSlice struct{ t *locktable.Table }

// NewDbSlice wraps a locktable.Table as a DbSlice collaborator.
func NewDbSlice(t *locktable.Table) DbSlice { return &tableDbSlice{t: t} }

func (d *tableDbSlice) CheckLock(mode Mode, keys [][]byte) bool {
	for _, k := range keys {
		if d.t.Check(k, mode) {
			return false
		}
	}
	return true
}

func (d *tableDbSlice) Acquire(mode Mode, keys [][]byte) bool {
	granted := true
	for _, k := range keys {
		if d.t.Check(k, mode) {
			granted = false
		}
		d.t.Acquire(k, mode)
	}
	return granted
}

func (d *tableDbSlice) Release(mode Mode, keys [][]byte) {
	for _, k := range keys {
		d.t.Release(k, mode)
	}
}

func (d *tableDbSlice) ReleaseCount(mode Mode, key []byte, count int) {
	d.t.ReleaseCount(key, mode, count)
}

// ShardLock is the shard-wide intent lock GLOBAL transactions take
// (spec.md §6). Unlike DbSlice's per-key counts, only one mode is ever
// contended at a time in practice (GLOBAL vs everything else), so this is
// a plain blocking refcounted lock rather than reusing locktable's
// per-key map, which would add a synthetic key just to hold a count.
type ShardLock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	holders int
}

// NewShardLock returns an unheld shard-wide lock.
func NewShardLock() *ShardLock {
	sl := &ShardLock{}
	sl.cond = sync.NewCond(&sl.mu)
	return sl
}

// Acquire blocks until the shard-wide lock is free, then takes it. mode is
// accepted for interface symmetry with spec.md §6 but every acquirer of
// the shard-wide lock is mutually exclusive with every other, so it is not
// consulted.
func (sl *ShardLock) Acquire(mode Mode) {
	sl.mu.Lock()
	for sl.holders > 0 {
		sl.cond.Wait()
	}
	sl.holders++
	sl.mu.Unlock()
}

func (sl *ShardLock) Release(mode Mode) {
	sl.mu.Lock()
	sl.holders--
	sl.cond.Broadcast()
	sl.mu.Unlock()
}

// Check reports whether the shard-wide lock is currently free, which is
// what permits a non-global transaction (canRunQuickie, scheduleInShard) to
// proceed; false means some GLOBAL_TRANS holds it.
func (sl *ShardLock) Check(mode Mode) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.holders == 0
}
