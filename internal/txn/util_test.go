package txn

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zhenli1347/dragonfly/internal/command"
)

func TestNowProtoReflectsWallClock(t *testing.T) {
	before := time.Now().Add(-time.Second)
	got := nowProto()
	after := time.Now().Add(time.Second)

	ts := got.AsTime()
	if ts.Before(before) || ts.After(after) {
		t.Errorf("nowProto() = %v, want between %v and %v", ts, before, after)
	}
}

func TestJournalFieldsCarriesTxidShardAndCommand(t *testing.T) {
	cid, ok := command.Lookup("SET")
	if !ok {
		t.Fatal("command.Lookup(\"SET\") not found")
	}
	tr := &Transaction{txid: 42, cid: cid}

	fields := journalFields(tr, 3)
	got := map[string]zap.Field{}
	for _, f := range fields {
		got[f.Key] = f
	}

	if f, ok := got["txid"]; !ok || f.Integer != 42 {
		t.Errorf("journalFields txid field = %+v, want 42", f)
	}
	if f, ok := got["shard"]; !ok || f.Integer != 3 {
		t.Errorf("journalFields shard field = %+v, want 3", f)
	}
	if f, ok := got["command"]; !ok || f.String != "SET" {
		t.Errorf("journalFields command field = %+v, want SET", f)
	}
}
