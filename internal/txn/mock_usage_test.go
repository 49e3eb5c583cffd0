package txn

import (
	"testing"

	"github.com/golang/mock/gomock"
	"go.uber.org/zap"

	"github.com/zhenli1347/dragonfly/internal/blocking"
	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/journal"
)

// TestCanRunQuickieConsultsDbSliceCheckLock exercises EngineShard.canRunQuickie
// against a mocked DbSlice so the expectation is on the call itself (mode and
// keys), not on locktable.Table's actual bookkeeping — locktable has its own
// tests for that.
func TestCanRunQuickieConsultsDbSliceCheckLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	mdb := NewMockDbSlice(ctrl)

	sh := NewEngineShard(0, blocking.New(1), journal.New(zap.NewNop(), 8), zap.NewNop())
	sh.db = mdb

	tr := &Transaction{
		args:      [][]byte{[]byte("k")},
		shardData: []*shardSlot{{shardID: 0, argStart: 0, argCount: 1}},
	}

	mdb.EXPECT().CheckLock(Exclusive, [][]byte{[]byte("k")}).Return(true)
	if !sh.canRunQuickie(tr) {
		t.Errorf("canRunQuickie() = false, want true when DbSlice reports no conflict")
	}

	mdb.EXPECT().CheckLock(Exclusive, [][]byte{[]byte("k")}).Return(false)
	if sh.canRunQuickie(tr) {
		t.Errorf("canRunQuickie() = true, want false when DbSlice reports a conflict")
	}
}

func TestAcquireKeysForCallsDbSliceAcquire(t *testing.T) {
	ctrl := gomock.NewController(t)
	mdb := NewMockDbSlice(ctrl)

	sh := NewEngineShard(0, blocking.New(1), journal.New(zap.NewNop(), 8), zap.NewNop())
	sh.db = mdb

	cid, _ := command.Lookup("SET")
	tr := &Transaction{
		cid:       cid,
		args:      [][]byte{[]byte("a"), []byte("b")},
		shardData: []*shardSlot{{shardID: 0, argStart: 0, argCount: 2}},
	}

	mdb.EXPECT().Acquire(Exclusive, [][]byte{[]byte("a"), []byte("b")}).Return(true)
	sh.acquireKeysFor(tr, tr.shardData[0])
}
