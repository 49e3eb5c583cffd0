package journal_test

import (
	"testing"

	"go.uber.org/zap"

	"github.com/zhenli1347/dragonfly/internal/journal"
)

func TestRecentEmpty(t *testing.T) {
	j := journal.New(zap.NewNop(), 4)
	if got := j.Recent(10); len(got) != 0 {
		t.Errorf("Recent(10) on an empty journal = %v, want empty", got)
	}
}

func TestRecentOrderOldestFirst(t *testing.T) {
	j := journal.New(zap.NewNop(), 4)
	for i := int64(1); i <= 3; i++ {
		j.Record(journal.Entry{TxID: i, Command: "SET"})
	}
	got := j.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d entries, want 3", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].TxID != want {
			t.Errorf("Recent()[%d].TxID = %d, want %d", i, got[i].TxID, want)
		}
	}
}

func TestRecentWrapsAroundCapacity(t *testing.T) {
	j := journal.New(zap.NewNop(), 3)
	for i := int64(1); i <= 5; i++ {
		j.Record(journal.Entry{TxID: i, Command: "SET"})
	}
	got := j.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d entries, want 3", len(got))
	}
	for i, want := range []int64{3, 4, 5} {
		if got[i].TxID != want {
			t.Errorf("Recent()[%d].TxID = %d, want %d (oldest entries should have rolled off)", i, got[i].TxID, want)
		}
	}
}

func TestRecentCapsAtAvailableSize(t *testing.T) {
	j := journal.New(zap.NewNop(), 10)
	j.Record(journal.Entry{TxID: 1})
	got := j.Recent(10)
	if len(got) != 1 {
		t.Errorf("Recent(10) with only one record returned %d entries, want 1", len(got))
	}
}

func TestNewDefaultsNonPositiveCapacity(t *testing.T) {
	j := journal.New(zap.NewNop(), 0)
	for i := int64(0); i < 5; i++ {
		j.Record(journal.Entry{TxID: i})
	}
	if got := j.Recent(5); len(got) != 5 {
		t.Errorf("Recent(5) = %d entries, want 5 (capacity should default rather than stay zero)", len(got))
	}
}
