package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/status"
	"github.com/zhenli1347/dragonfly/internal/txn"
)

// memStore is a minimal per-shard key-value body for the demo callbacks
// to act on. Each shard's slice is only ever touched from that shard's
// own goroutine (the callbacks below run inside EngineShard.Run), so it
// needs no locking of its own — the same single-owner discipline
// store/storage/storage.go's real datastore would also rely on.
type memStore struct {
	perShard []map[string][]byte
}

func newMemStore(n int) *memStore {
	m := &memStore{perShard: make([]map[string][]byte, n)}
	for i := range m.perShard {
		m.perShard[i] = make(map[string][]byte)
	}
	return m
}

func (m *memStore) get(shardID int, key []byte) ([]byte, bool) {
	v, ok := m.perShard[shardID][string(key)]
	return v, ok
}

func (m *memStore) set(shardID int, key, val []byte) {
	m.perShard[shardID][string(key)] = val
}

// runDemo exercises spec.md §8's scenarios 1-6 against the real shard
// engine and logs a pass/fail line per scenario, standing in for the RESP
// frontend this repository does not implement.
func runDemo(shards *txn.ShardSet, log *zap.Logger) {
	store := newMemStore(shards.Size())
	ctx := context.Background()

	check := func(name string, ok bool, detail string) {
		if ok {
			log.Info("demo scenario passed", zap.String("scenario", name), zap.String("detail", detail))
		} else {
			log.Warn("demo scenario failed", zap.String("scenario", name), zap.String("detail", detail))
		}
	}

	// Scenario 1: single-shard fast path.
	{
		cid := command.Table["SET"]
		args := [][]byte{[]byte("SET"), []byte("a"), []byte("1")}
		t, st := txn.InitByArgs(shards, cid, 0, args)
		ok := st == status.OK && t.UniqueShardCnt() == 1
		st = t.ScheduleSingleHop(ctx, func(tt *txn.Transaction, sh *txn.EngineShard) status.Status {
			keyArgs := tt.GetShardArgs(sh.ID())
			store.set(sh.ID(), keyArgs[0], keyArgs[1])
			return status.OK
		})
		ok = ok && st == status.OK
		check("single-shard-fast-path", ok, t.DebugID())
	}

	// Scenario 2: multi-shard MGET.
	{
		cid := command.Table["MGET"]
		args := [][]byte{[]byte("MGET"), []byte("a"), []byte("b"), []byte("c"), []byte("d")}
		t, st := txn.InitByArgs(shards, cid, 0, args)
		results := make([][]byte, 4)
		st = t.ScheduleSingleHop(ctx, func(tt *txn.Transaction, sh *txn.EngineShard) status.Status {
			keys := tt.GetShardArgs(sh.ID())
			for i, k := range keys {
				v, _ := store.get(sh.ID(), k)
				rev := tt.ReverseArgIndex(sh.ID(), i)
				if rev >= 0 && rev < len(results) {
					results[rev] = v
				}
			}
			return status.OK
		})
		check("multi-shard-mget", st == status.OK, fmt.Sprintf("shards=%d", t.UniqueShardCnt()))
	}

	// Scenario 3: contended scheduling between two coordinators over the
	// same keys.
	{
		cid := command.Table["SET"]
		done := make(chan status.Status, 2)
		for i := 0; i < 2; i++ {
			i := i
			go func() {
				args := [][]byte{[]byte("SET"), []byte("x"), []byte(fmt.Sprintf("v%d", i))}
				t, _ := txn.InitByArgs(shards, cid, 0, args)
				st := t.ScheduleSingleHop(ctx, func(tt *txn.Transaction, sh *txn.EngineShard) status.Status {
					a := tt.GetShardArgs(sh.ID())
					store.set(sh.ID(), a[0], a[1])
					return status.OK
				})
				done <- st
			}()
		}
		s1, s2 := <-done, <-done
		check("contended-scheduling", s1 == status.OK && s2 == status.OK, "both coordinators completed without deadlock")
	}

	// Scenario 4: MULTI/EXEC LOCK_AHEAD.
	{
		setCID := command.Table["SET"]
		t, _ := txn.InitByArgs(shards, setCID, 0, [][]byte{[]byte("SET"), []byte("a"), []byte("1")})
		t.StartMultiLockedAhead(ctx, [][]byte{[]byte("a"), []byte("b")})

		st1 := t.ScheduleSingleHop(ctx, func(tt *txn.Transaction, sh *txn.EngineShard) status.Status {
			a := tt.GetShardArgs(sh.ID())
			if len(a) >= 2 {
				store.set(sh.ID(), a[0], a[1])
			}
			return status.OK
		})

		t.MultiSwitchCmd(setCID, 0, [][]byte{[]byte("SET"), []byte("b"), []byte("2")})
		st2 := t.ScheduleSingleHop(ctx, func(tt *txn.Transaction, sh *txn.EngineShard) status.Status {
			a := tt.GetShardArgs(sh.ID())
			if len(a) >= 2 {
				store.set(sh.ID(), a[0], a[1])
			}
			return status.OK
		})

		t.UnlockMulti()
		check("multi-exec-lock-ahead", st1 == status.OK && st2 == status.OK, "two hops under one lock-ahead multi")
	}

	// Scenario 5 & 6: blocking BLPOP, awakened and timed out.
	{
		blCID := command.Table["BLPOP"]
		args := [][]byte{[]byte("BLPOP"), []byte("q"), []byte("100")}
		t, _ := txn.InitByArgs(shards, blCID, 0, args)

		awokeCh := make(chan bool, 1)
		go func() {
			awokeCh <- t.WaitOnWatch(ctx, time.Now().Add(150*time.Millisecond))
		}()
		time.Sleep(20 * time.Millisecond)

		// A producer SET on the same key runs through the normal hop
		// path, which calls NotifyPending on conclusion and wakes any
		// waiter registered on that shard.
		setCID := command.Table["SET"]
		producerArgs := [][]byte{[]byte("SET"), []byte("q"), []byte("pushed")}
		pt, _ := txn.InitByArgs(shards, setCID, 0, producerArgs)
		pt.ScheduleSingleHop(ctx, func(tt *txn.Transaction, sh *txn.EngineShard) status.Status {
			a := tt.GetShardArgs(sh.ID())
			store.set(sh.ID(), a[0], a[1])
			return status.OK
		})

		awakened := <-awokeCh
		check("blocking-blpop-awakened", awakened, "producer push woke the waiter")
	}

	{
		blCID := command.Table["BLPOP"]
		args := [][]byte{[]byte("BLPOP"), []byte("empty"), []byte("1")}
		t, _ := txn.InitByArgs(shards, blCID, 0, args)
		awakened := t.WaitOnWatch(ctx, time.Now().Add(50*time.Millisecond))
		check("blocking-blpop-timeout", !awakened, "no producer, wait expired")
	}
}
