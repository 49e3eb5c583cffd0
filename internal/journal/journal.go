// Package journal implements the auto-journal hook (spec.md §4.7, C10): a
// Write command that commits successfully is appended to a replication
// log after its last hop, unless its descriptor carries NoAutoJournal.
//
// Grounded on the teacher's readCommits loop (tx/txmanager/txmanager.go),
// which replays a committed-entry channel fed by etcd/raft; the raft
// transport and replay-on-restart machinery are stripped per the Non-goals
// in SPEC_FULL.md §1/§9 (replication and disk persistence are out of
// scope), leaving an in-memory append-only log any real replication layer
// could later sit behind. The wall-clock field uses
// google.golang.org/protobuf/types/known/timestamppb so a record is ready
// to be embedded in a real wire message without this repository needing a
// protobuf compilation step of its own.
package journal

import (
	"sync"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Entry is one journaled command.
type Entry struct {
	TxID    int64
	ShardID int
	Command string
	Args    [][]byte
	At      *timestamppb.Timestamp
}

// Journal is the auto-journal collaborator (spec.md §6).
type Journal interface {
	// Record appends e. Implementations must not block the calling
	// shard goroutine for long, since Record runs inline in the
	// shard's post-commit auto-journal hook (spec.md §4.7).
	Record(e Entry)
}

// MemJournal is the bundled in-memory implementation: a ring buffer of the
// most recent entries plus a zap log line per record, standing in for a
// real replication sink. Exported (rather than returned only as a Journal)
// so internal/adminapi can read Recent for its debug endpoint.
type MemJournal struct {
	mu      sync.Mutex
	log     *zap.Logger
	entries []Entry
	cap     int
	next    int
	size    int
}

// New returns a Journal that keeps the last capacity entries in memory and
// logs each one via log at debug level.
func New(log *zap.Logger, capacity int) *MemJournal {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemJournal{log: log, entries: make([]Entry, capacity), cap: capacity}
}

func (j *MemJournal) Record(e Entry) {
	j.mu.Lock()
	j.entries[j.next] = e
	j.next = (j.next + 1) % j.cap
	if j.size < j.cap {
		j.size++
	}
	j.mu.Unlock()

	j.log.Debug("journal record",
		zap.Int64("txid", e.TxID),
		zap.Int("shard", e.ShardID),
		zap.String("command", e.Command),
		zap.Int("nargs", len(e.Args)),
	)
}

// Recent returns up to n of the most recently recorded entries, oldest
// first, for internal/adminapi's debug endpoint.
func (j *MemJournal) Recent(n int) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > j.size {
		n = j.size
	}
	out := make([]Entry, n)
	start := (j.next - n + j.cap) % j.cap
	for i := 0; i < n; i++ {
		out[i] = j.entries[(start+i)%j.cap]
	}
	return out
}
