package locktable_test

import (
	"testing"

	"github.com/zhenli1347/dragonfly/internal/locktable"
)

func TestCheckEmptyNeverConflicts(t *testing.T) {
	tab := locktable.New()
	if tab.Check([]byte("k"), locktable.Exclusive) {
		t.Errorf("Check on an empty table reported a conflict")
	}
}

func TestExclusiveConflictsWithEverything(t *testing.T) {
	tab := locktable.New()
	tab.Acquire([]byte("k"), locktable.Exclusive)
	if !tab.Check([]byte("k"), locktable.Shared) {
		t.Errorf("Shared should conflict with an existing Exclusive holder")
	}
	if !tab.Check([]byte("k"), locktable.Exclusive) {
		t.Errorf("Exclusive should conflict with an existing Exclusive holder")
	}
}

func TestSharedDoesNotConflictWithShared(t *testing.T) {
	tab := locktable.New()
	tab.Acquire([]byte("k"), locktable.Shared)
	if tab.Check([]byte("k"), locktable.Shared) {
		t.Errorf("Shared should not conflict with another Shared holder")
	}
	if !tab.Check([]byte("k"), locktable.Exclusive) {
		t.Errorf("Exclusive should conflict with an existing Shared holder")
	}
}

func TestReleaseClearsEntry(t *testing.T) {
	tab := locktable.New()
	tab.Acquire([]byte("k"), locktable.Exclusive)
	tab.Release([]byte("k"), locktable.Exclusive)
	if tab.Occupancy() != 0 {
		t.Errorf("Occupancy = %d, want 0 after releasing the only holder", tab.Occupancy())
	}
	if tab.Check([]byte("k"), locktable.Exclusive) {
		t.Errorf("Check reported a conflict after the key's last holder released")
	}
}

func TestReleaseCountBulk(t *testing.T) {
	tab := locktable.New()
	tab.Acquire([]byte("k"), locktable.Exclusive)
	tab.Acquire([]byte("k"), locktable.Exclusive)
	tab.Acquire([]byte("k"), locktable.Exclusive)
	tab.ReleaseCount([]byte("k"), locktable.Exclusive, 3)
	if tab.Occupancy() != 0 {
		t.Errorf("Occupancy = %d, want 0 after releasing all three holds", tab.Occupancy())
	}
}

func TestReleaseOnUnknownKeyIsNoop(t *testing.T) {
	tab := locktable.New()
	tab.Release([]byte("never-acquired"), locktable.Exclusive) // must not panic
	if tab.Occupancy() != 0 {
		t.Errorf("Occupancy = %d, want 0", tab.Occupancy())
	}
}

func TestOccupancyCountsDistinctKeys(t *testing.T) {
	tab := locktable.New()
	tab.Acquire([]byte("a"), locktable.Shared)
	tab.Acquire([]byte("b"), locktable.Exclusive)
	tab.Acquire([]byte("a"), locktable.Shared)
	if got := tab.Occupancy(); got != 2 {
		t.Errorf("Occupancy() = %d, want 2", got)
	}
}
