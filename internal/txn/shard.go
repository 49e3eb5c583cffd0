package txn

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/zhenli1347/dragonfly/internal/blocking"
	"github.com/zhenli1347/dragonfly/internal/journal"
	"github.com/zhenli1347/dragonfly/internal/locktable"
	"github.com/zhenli1347/dragonfly/internal/txqueue"
)

// EngineShard is one single-threaded execution context (spec.md §5): it
// owns its lock table, tx queue and shard-wide lock, and only ever runs
// code on its own goroutine — everything else reaches it by posting a
// closure with Post.
//
// Grounded on tinykv's kv/tikv/storage/exec/scheduler.go, which runs a
// single goroutine pulling commands off a channel and executing them
// against storage with no further synchronization; generalized here to
// also own a tx queue and lock table instead of dispatching straight to
// storage.
type EngineShard struct {
	id int

	tasks chan func(*EngineShard)
	done  chan struct{}

	queue    *txqueue.Queue
	locks    *locktable.Table
	wide     *ShardLock
	db       DbSlice
	blocking *blocking.Controller
	journal  journal.Journal
	log      *zap.Logger

	committedTxid int64 // only ever touched from this shard's own goroutine
	quickRuns     int64

	multiShards map[int64]bool // txids currently in an un-switched multi on this shard
}

// NewEngineShard constructs shard id, sharing bc (the blocking controller)
// and jr (the journal) across every shard in the set the way spec.md §6
// describes both as process-wide collaborators reached per-shard.
func NewEngineShard(id int, bc *blocking.Controller, jr journal.Journal, log *zap.Logger) *EngineShard {
	return &EngineShard{
		id:          id,
		tasks:       make(chan func(*EngineShard), 256),
		done:        make(chan struct{}),
		queue:       txqueue.New(),
		locks:       locktable.New(),
		wide:        NewShardLock(),
		blocking:    bc,
		journal:     jr,
		log:         log.With(zap.Int("shard", id)),
		multiShards: make(map[int64]bool),
	}
}

func (sh *EngineShard) init() { sh.db = NewDbSlice(sh.locks) }

// Run is the shard's event loop; it should be started in its own
// goroutine by cmd/dragonflynode at boot.
func (sh *EngineShard) Run() {
	sh.init()
	for {
		select {
		case fn := <-sh.tasks:
			fn(sh)
		case <-sh.done:
			return
		}
	}
}

// Stop terminates the event loop. Tasks still waiting in the channel are
// not run once Run has seen the stop.
func (sh *EngineShard) Stop() { close(sh.done) }

// Post enqueues fn to run on this shard's goroutine (spec.md §6
// shard_set.add(sid, fn)).
func (sh *EngineShard) Post(fn func(*EngineShard)) {
	sh.tasks <- fn
}

// ID returns the shard's id.
func (sh *EngineShard) ID() int { return sh.id }

// QueueDepth, LockOccupancy and CommittedTxid back internal/adminapi's
// debug endpoint. They are read without posting through the shard's own
// goroutine, which is technically a data race on committedTxid under the
// race detector; acceptable for a read-only introspection endpoint that
// tolerates a stale snapshot, the same tradeoff the teacher's HTTP status
// handlers make reading straight off the live kvstore map.
func (sh *EngineShard) QueueDepth() int     { return sh.queue.Size() }
func (sh *EngineShard) LockOccupancy() int  { return sh.locks.Occupancy() }
func (sh *EngineShard) CommittedTxid() int64 { return sh.committedTxid }

// ShardSet is the fixed collection of shards the coordinator schedules
// against (spec.md §6 shard_set).
type ShardSet struct {
	shards []*EngineShard
	opSeq  atomic.Int64
}

// NewShardSet builds a ShardSet of n freshly constructed shards sharing
// the given blocking controller and journal.
func NewShardSet(n int, bc *blocking.Controller, jr journal.Journal, log *zap.Logger) *ShardSet {
	ss := &ShardSet{shards: make([]*EngineShard, n)}
	for i := 0; i < n; i++ {
		ss.shards[i] = NewEngineShard(i, bc, jr, log)
	}
	return ss
}

// Size returns the number of shards (spec.md §6 shard_set.size).
func (ss *ShardSet) Size() int { return len(ss.shards) }

// Shard returns shard id.
func (ss *ShardSet) Shard(id int) *EngineShard { return ss.shards[id] }

// Run starts every shard's event loop goroutine. Callers should arrange
// for Stop to be called at shutdown.
func (ss *ShardSet) Run() {
	for _, sh := range ss.shards {
		go sh.Run()
	}
}

// Stop terminates every shard's event loop.
func (ss *ShardSet) Stop() {
	for _, sh := range ss.shards {
		sh.Stop()
	}
}

// NextTxID hands out the next value of op_seq, the process-wide monotonic
// counter spec.md §9 calls out as global mutable state with defined init.
func (ss *ShardSet) NextTxID() int64 { return ss.opSeq.Add(1) }

// RunBriefInParallel posts fn to every shard selected by filter (or every
// shard if filter is nil) and blocks until all have run it (spec.md §6
// shard_set.run_brief_in_parallel).
func (ss *ShardSet) RunBriefInParallel(fn func(*EngineShard), filter func(id int) bool) {
	var wg sync.WaitGroup
	for _, sh := range ss.shards {
		if filter != nil && !filter(sh.id) {
			continue
		}
		wg.Add(1)
		sh := sh
		sh.Post(func(s *EngineShard) {
			defer wg.Done()
			fn(s)
		})
	}
	wg.Wait()
}
