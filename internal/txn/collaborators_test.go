package txn

import (
	"testing"
	"time"

	"github.com/zhenli1347/dragonfly/internal/locktable"
)

func TestTableDbSliceCheckLockFalseWhenConflicting(t *testing.T) {
	tab := locktable.New()
	db := NewDbSlice(tab)
	keys := [][]byte{[]byte("a"), []byte("b")}

	if !db.CheckLock(Exclusive, keys) {
		t.Fatalf("CheckLock on an empty table reported a conflict")
	}
	db.Acquire(Exclusive, keys)
	if db.CheckLock(Exclusive, keys) {
		t.Errorf("CheckLock reported no conflict on a key this transaction itself holds exclusively")
	}
}

func TestTableDbSliceAcquireReportsGranted(t *testing.T) {
	tab := locktable.New()
	db := NewDbSlice(tab)
	keys := [][]byte{[]byte("a")}

	if granted := db.Acquire(Exclusive, keys); !granted {
		t.Errorf("Acquire on a free key reported not granted")
	}
	if granted := db.Acquire(Exclusive, keys); granted {
		t.Errorf("Acquire on an already-held key reported granted")
	}
}

func TestTableDbSliceReleaseFreesLock(t *testing.T) {
	tab := locktable.New()
	db := NewDbSlice(tab)
	keys := [][]byte{[]byte("a")}

	db.Acquire(Exclusive, keys)
	db.Release(Exclusive, keys)
	if !db.CheckLock(Exclusive, keys) {
		t.Errorf("CheckLock still reports a conflict after Release")
	}
}

func TestTableDbSliceReleaseCount(t *testing.T) {
	tab := locktable.New()
	db := NewDbSlice(tab)
	db.Acquire(Exclusive, [][]byte{[]byte("a")})
	db.Acquire(Exclusive, [][]byte{[]byte("a")})
	db.ReleaseCount(Exclusive, []byte("a"), 2)
	if !db.CheckLock(Exclusive, [][]byte{[]byte("a")}) {
		t.Errorf("CheckLock still reports a conflict after releasing both holds")
	}
}

func TestShardLockMutualExclusion(t *testing.T) {
	sl := NewShardLock()
	if !sl.Check(Exclusive) {
		t.Fatalf("Check() = false on a fresh lock")
	}
	sl.Acquire(Exclusive)
	if sl.Check(Exclusive) {
		t.Errorf("Check() = true while held")
	}
	sl.Release(Exclusive)
	if !sl.Check(Exclusive) {
		t.Errorf("Check() = false after Release")
	}
}

func TestShardLockAcquireBlocksUntilReleased(t *testing.T) {
	sl := NewShardLock()
	sl.Acquire(Exclusive)

	acquired := make(chan struct{})
	go func() {
		sl.Acquire(Exclusive)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before the first Release")
	case <-time.After(50 * time.Millisecond):
	}

	sl.Release(Exclusive)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never returned after Release")
	}
}
