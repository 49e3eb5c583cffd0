package keyindex_test

import (
	"testing"

	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/keyindex"
	"github.com/zhenli1347/dragonfly/internal/status"
)

func args(strs ...string) [][]byte {
	out := make([][]byte, len(strs))
	for i, s := range strs {
		out[i] = []byte(s)
	}
	return out
}

func TestDetermineFixedSingleKey(t *testing.T) {
	cid, _ := command.Lookup("GET")
	idx, st := keyindex.Determine(cid, args("GET", "a"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.Start != 1 || idx.End != 1 || idx.NumKeys() != 1 {
		t.Errorf("idx = %+v, want a single key at position 1", idx)
	}
}

func TestDetermineFixedVariableLastKey(t *testing.T) {
	cid, _ := command.Lookup("MGET")
	idx, st := keyindex.Determine(cid, args("MGET", "a", "b", "c"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.NumKeys() != 3 {
		t.Errorf("NumKeys() = %d, want 3", idx.NumKeys())
	}
}

func TestDetermineFixedStep(t *testing.T) {
	cid, _ := command.Lookup("MSET")
	idx, st := keyindex.Determine(cid, args("MSET", "a", "1", "b", "2"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.NumKeys() != 2 || idx.Step != 2 {
		t.Errorf("idx = %+v, want 2 keys with step 2", idx)
	}
}

func TestDetermineFixedSyntaxErr(t *testing.T) {
	cid, _ := command.Lookup("GET")
	if _, st := keyindex.Determine(cid, args("GET")); st != status.SyntaxErr {
		t.Errorf("status = %v, want SyntaxErr for a missing key arg", st)
	}
}

func TestDetermineGlobalTrans(t *testing.T) {
	cid, _ := command.Lookup("FLUSHDB")
	idx, st := keyindex.Determine(cid, args("FLUSHDB"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.Start != -1 {
		t.Errorf("idx.Start = %d, want -1 for a global-trans command", idx.Start)
	}
}

func TestDetermineEvalLikeZeroKeys(t *testing.T) {
	cid, _ := command.Lookup("EVAL")
	idx, st := keyindex.Determine(cid, args("EVAL", "return 1", "0"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.Start != -1 {
		t.Errorf("idx.Start = %d, want -1 for numkeys=0", idx.Start)
	}
}

func TestDetermineEvalLikeWithKeys(t *testing.T) {
	cid, _ := command.Lookup("EVAL")
	idx, st := keyindex.Determine(cid, args("EVAL", "return redis.call('get', KEYS[1])", "2", "a", "b"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.NumKeys() != 2 {
		t.Errorf("NumKeys() = %d, want 2", idx.NumKeys())
	}
}

func TestDetermineEvalLikeBadCount(t *testing.T) {
	cid, _ := command.Lookup("EVAL")
	if _, st := keyindex.Determine(cid, args("EVAL", "script", "notanumber")); st != status.InvalidInt {
		t.Errorf("status = %v, want InvalidInt", st)
	}
}

func TestDetermineStoreBonus(t *testing.T) {
	cid, _ := command.Lookup("ZUNIONSTORE")
	idx, st := keyindex.Determine(cid, args("ZUNIONSTORE", "dest", "2", "k1", "k2"))
	if st != status.OK {
		t.Fatalf("status = %v, want OK", st)
	}
	if idx.Bonus != 1 {
		t.Errorf("idx.Bonus = %d, want 1 (the destination key)", idx.Bonus)
	}
	if idx.NumKeys() != 2 {
		t.Errorf("NumKeys() = %d, want 2", idx.NumKeys())
	}
}
