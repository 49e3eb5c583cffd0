package txn

import (
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// nowProto stamps a journal record's wall-clock field (spec.md §4.3 step
// 1 "record wall-clock time"); timestamppb is a pre-built protobuf
// message type, so no .proto compilation is needed to use it.
func nowProto() *timestamppb.Timestamp {
	return timestamppb.New(time.Now())
}

func journalFields(t *Transaction, shardID int) []zap.Field {
	return []zap.Field{
		zap.Int64("txid", t.txid),
		zap.Int("shard", shardID),
		zap.String("command", t.cid.Name),
	}
}
