// Package txqueue is a shard's per-shard transaction queue (spec.md §2
// C2, §3 TxQueue): an ascending-by-txid ordering of the transactions
// currently armed on this shard, with O(1) head/tail/remove-by-token.
//
// Grounded on the teacher's single-owner, no-lock-needed map style
// (store/storage/storage.go keeps its key-value map behind one goroutine
// and needs no internal locking); generalized here to an ordered
// container/list.List whose Tokens hold the list element for O(1)
// removal, since the queue only
// ever has one owner (the shard's event-loop goroutine) and needs ordered
// traversal that a plain map cannot give.
package txqueue

import "container/list"

// Entry is the minimal view of a queued transaction the queue itself
// needs. Kept deliberately small so this package does not need to import
// internal/txn, which would create an import cycle (txn depends on
// txqueue, not the other way around).
type Entry interface {
	TxID() int64
}

// Token identifies a queued entry for O(1) removal, returned by Insert.
type Token struct {
	elem *list.Element
}

// Queue is one shard's tx queue. Not safe for concurrent use; callers must
// only touch it from the owning shard goroutine.
type Queue struct {
	l *list.List
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{l: list.New()}
}

// Insert places e in ascending txid order and returns its token. An entry
// whose txid is not below the tail's is a plain tail append; a smaller
// txid (a contended transaction the scheduler admits ahead of the tail) is
// spliced in before every entry with a larger txid.
func (q *Queue) Insert(e Entry) Token {
	for el := q.l.Back(); el != nil; el = el.Prev() {
		if el.Value.(Entry).TxID() <= e.TxID() {
			return Token{elem: q.l.InsertAfter(e, el)}
		}
	}
	return Token{elem: q.l.PushFront(e)}
}

// Remove removes the entry identified by tok. No-op if tok is the zero
// value or already removed.
func (q *Queue) Remove(tok Token) {
	if tok.elem == nil {
		return
	}
	q.l.Remove(tok.elem)
}

// Head returns the queue's first entry and true, or (nil, false) if empty.
func (q *Queue) Head() (Entry, bool) {
	e := q.l.Front()
	if e == nil {
		return nil, false
	}
	return e.Value.(Entry), true
}

// Tail returns the queue's last entry and true, or (nil, false) if empty.
func (q *Queue) Tail() (Entry, bool) {
	e := q.l.Back()
	if e == nil {
		return nil, false
	}
	return e.Value.(Entry), true
}

// TailScore returns the txid of the queue's last entry, or -1 if empty.
// This is the "tail score" the scheduler compares a contended
// transaction's scheduling txid against: when the txid is below it, the
// transaction is still queued; otherwise that shard rejects the attempt.
func (q *Queue) TailScore() int64 {
	e, ok := q.Tail()
	if !ok {
		return -1
	}
	return e.TxID()
}

// Empty reports whether the queue holds no entries.
func (q *Queue) Empty() bool { return q.l.Len() == 0 }

// Size returns the number of queued entries.
func (q *Queue) Size() int { return q.l.Len() }
