package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/divan/num2words"

	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/status"
	"github.com/zhenli1347/dragonfly/internal/txqueue"
)

// Callback is the user command body invoked on each participating shard
// (spec.md §3 "cb"): it runs with the transaction and the shard it landed
// on, and returns the hop's status.
type Callback func(t *Transaction, sh *EngineShard) status.Status

// shardSlot is PerShardData (spec.md §3), generalized so a slot always
// names its shard id explicitly instead of relying on array position —
// shardargs.Distribute already drops empty shards, so Transaction never
// needs to store an inactive placeholder slot.
type shardSlot struct {
	shardID  int
	argStart int
	argCount int
	mask     bits
	pqTok    txqueue.Token
	hasTok   bool
	isArmed  atomic.Bool
}

// Transaction is the coordinator's per-command state (spec.md §3).
type Transaction struct {
	id int64 // process-unique identity for debug/log purposes, distinct from txid

	cid      *command.Descriptor
	dbIndex  int
	fullArgs [][]byte
	args     [][]byte
	// reverseIndex[i] is the position within the main key range that
	// args[i] came from; populated only when cid has ReverseMapping.
	reverseIndex []int
	// keyMask[i] is true when args[i] is an actual key (main range or
	// bonus) rather than a companion value riding alongside one (MSET's
	// paired value, or a TrailingValue command's value payload) — locking
	// call sites must filter by this, since only real keys may be passed
	// to DbSlice.
	keyMask []bool

	shards *ShardSet

	resMu          sync.Mutex
	shardData      []*shardSlot
	uniqueShardCnt int
	uniqueShardID  int

	txid  int64
	state bits

	runCount atomic.Int32
	useCount atomic.Int32
	seqlock  atomic.Uint64

	hopMu   sync.Mutex
	hopDone chan struct{}

	localResult status.Status
	cb          Callback

	multi *multiData

	notifyTxid atomic.Int64 // math.MaxInt64 means "not yet notified"
	awakeOnce  sync.Once
	awakeCh    chan struct{}
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

const notNotified = int64(1<<63 - 1)

var txSeq atomic.Int64

// newTransaction allocates a fresh Transaction bound to ss.
func newTransaction(ss *ShardSet, cid *command.Descriptor, dbIndex int, fullArgs [][]byte) *Transaction {
	t := &Transaction{
		id:       txSeq.Add(1),
		cid:      cid,
		dbIndex:  dbIndex,
		fullArgs: fullArgs,
		shards:   ss,
		cancelCh: make(chan struct{}),
	}
	t.useCount.Store(1) // the coordinator's own reference
	t.notifyTxid.Store(notNotified)
	return t
}

// DebugID renders the transaction's identity in a form that stays
// greppable across runs with different id ranges, by spelling the numeric
// id out in words the way num2words does in the teacher's test suite.
func (t *Transaction) DebugID() string {
	word := num2words.Convert(int(t.id))
	if t.uniqueShardCnt == 1 {
		return fmt.Sprintf("tx#%s@shard-%d", word, t.uniqueShardID)
	}
	return fmt.Sprintf("tx#%s@shards-%d", word, t.uniqueShardCnt)
}

// TxID satisfies txqueue.Entry.
func (t *Transaction) TxID() int64 { return t.txid }

// UniqueShardCnt returns the number of shards this transaction touches.
func (t *Transaction) UniqueShardCnt() int { return t.uniqueShardCnt }

// GetShardArgs returns the argument sub-span for shardID, or nil if the
// transaction is not active on that shard (spec.md §6 get_shard_args).
func (t *Transaction) GetShardArgs(shardID int) [][]byte {
	for _, sd := range t.shardData {
		if sd.shardID == shardID {
			if sd.argStart < 0 {
				return t.args
			}
			return t.args[sd.argStart : sd.argStart+sd.argCount]
		}
	}
	return nil
}

// GetShardKeys is GetShardArgs filtered down to actual keys, excluding any
// companion value riding alongside one. Every locking call site (quickie
// checks, acquire/release, schedule/cancel) must use this instead of
// GetShardArgs, which callbacks and the journal use to see the full
// key-and-value payload.
func (t *Transaction) GetShardKeys(shardID int) [][]byte {
	for _, sd := range t.shardData {
		if sd.shardID == shardID {
			start, count := sd.argStart, sd.argCount
			if start < 0 {
				start, count = 0, len(t.args)
			}
			if t.keyMask == nil {
				return t.args[start : start+count]
			}
			keys := make([][]byte, 0, count)
			for i := start; i < start+count; i++ {
				if t.keyMask[i] {
					keys = append(keys, t.args[i])
				}
			}
			return keys
		}
	}
	return nil
}

// ReverseArgIndex maps position i within shardID's argument span back to
// the corresponding 0-based position within the command's main key range
// (spec.md §6 reverse_arg_index).
// Only meaningful when cid has ReverseMapping; returns -1 otherwise or if
// i has no reverse entry (e.g. it is a bonus key).
func (t *Transaction) ReverseArgIndex(shardID int, i int) int {
	if t.reverseIndex == nil {
		return -1
	}
	sd := t.slot(shardID)
	if sd == nil {
		return -1
	}
	base := sd.argStart
	if base < 0 {
		base = 0
	}
	rev := t.reverseIndex[base+i]
	if rev < 0 {
		return -1
	}
	return rev
}

func (t *Transaction) slot(shardID int) *shardSlot {
	for _, sd := range t.shardData {
		if sd.shardID == shardID {
			return sd
		}
	}
	return nil
}

func (t *Transaction) isGlobal() bool {
	return t.cid.Flags.Has(command.GlobalTrans)
}

func (t *Transaction) isAtomicMulti() bool {
	return t.multi != nil && t.multi.mode != NonAtomic
}

func (t *Transaction) setLocalResult(s status.Status) {
	t.resMu.Lock()
	t.localResult = status.Combine(t.localResult, s)
	t.resMu.Unlock()
}

// LocalResult returns the aggregated status of the most recently completed
// hop.
func (t *Transaction) LocalResult() status.Status {
	t.resMu.Lock()
	defer t.resMu.Unlock()
	return t.localResult
}

func (t *Transaction) resetHop() {
	t.hopMu.Lock()
	t.hopDone = make(chan struct{})
	t.hopMu.Unlock()
	t.resMu.Lock()
	t.localResult = status.OK
	t.resMu.Unlock()
}

func (t *Transaction) hopChan() chan struct{} {
	t.hopMu.Lock()
	defer t.hopMu.Unlock()
	return t.hopDone
}

// finishRun implements run_count's countdown (spec.md §3 invariant 4):
// the last shard task to decrement it signals the coordinator.
func (t *Transaction) finishRun() {
	if t.runCount.Add(-1) == 0 {
		close(t.hopChan())
	}
}

func (t *Transaction) releaseUse() {
	if t.useCount.Add(-1) == 0 {
		// Nothing to free explicitly: Go's GC reclaims the Transaction
		// once the last reference (coordinator or shard closure) drops
		// it, mirroring use_count's role in the original as a lifetime
		// guard rather than a manual allocator hook.
	}
}
