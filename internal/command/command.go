// Package command holds the command descriptor table the coordinator reads
// to find a command's keys: name, option flags, first/last key position,
// key step, and an optional "bonus" key index (e.g. a STORE destination).
//
// The original source dispatches on these through a virtual table; per the
// spec's redesign note (spec.md §9, "virtual dispatch over command kinds")
// this is a tagged bitset instead.
package command

// Flag is a bitset of command options. The core only ever tests individual
// bits, so an options struct would just be more ceremony around the same
// information.
type Flag uint32

const (
	// Write marks a command that mutates the keyspace; gates the
	// auto-journal hook (spec.md §4.7).
	Write Flag = 1 << iota
	// Readonly marks a command that does not mutate the keyspace. The
	// coordinator does not consult it: its keys are locked exclusively
	// like any other command's.
	Readonly
	// GlobalTrans marks a command (FLUSHDB and friends) that needs every
	// shard's shard-wide lock rather than per-key locks.
	GlobalTrans
	// VariadicKeys marks a command whose key count is embedded in its
	// arguments (EVAL, ZUNIONSTORE, ...).
	VariadicKeys
	// ReverseMapping marks a command that must report results back in
	// input-argument order (MGET) and therefore needs a reverse index.
	ReverseMapping
	// NoAutoJournal suppresses the auto-journal hook even for a Write
	// command (used by commands that journal themselves).
	NoAutoJournal
)

// Has reports whether f has every bit in mask set.
func (f Flag) Has(mask Flag) bool { return f&mask == mask }

// Descriptor is the "cid" of spec.md §3: everything the coordinator needs
// to know about a command to shard and schedule it, short of the command's
// actual semantics (which live in the callback the caller supplies).
type Descriptor struct {
	Name string
	Flags Flag

	// FirstKeyPos/LastKeyPos/KeyStep describe fixed-key commands, counted
	// from argv[0] == the command name itself (classic Redis firstkey/
	// lastkey/keystep convention). A negative LastKeyPos is relative to
	// argc (-1 == the last argument).
	FirstKeyPos int
	LastKeyPos  int
	KeyStep     int

	// Bonus is an extra single-key position outside the main key range
	// (e.g. a STORE destination key), 0 if the command has none.
	Bonus int
}

// Table is the built-in command registry. It is not exhaustive — just wide
// enough to exercise every scenario in spec.md §8: single-key fast path,
// multi-key fan-out with REVERSE_MAPPING, a STORE-style bonus key, a
// variadic EVAL, a GLOBAL_TRANS command, and a blocking command.
var Table = map[string]*Descriptor{
	"GET":     {Name: "GET", Flags: Readonly, FirstKeyPos: 1, LastKeyPos: 1, KeyStep: 1},
	"SET":     {Name: "SET", Flags: Write, FirstKeyPos: 1, LastKeyPos: 1, KeyStep: 1},
	"DEL":     {Name: "DEL", Flags: Write, FirstKeyPos: 1, LastKeyPos: -1, KeyStep: 1},
	"EXPIRE":  {Name: "EXPIRE", Flags: Write, FirstKeyPos: 1, LastKeyPos: 1, KeyStep: 1},
	"MGET":    {Name: "MGET", Flags: Readonly | ReverseMapping, FirstKeyPos: 1, LastKeyPos: -1, KeyStep: 1},
	"MSET":    {Name: "MSET", Flags: Write, FirstKeyPos: 1, LastKeyPos: -1, KeyStep: 2},
	"EVAL":    {Name: "EVAL", Flags: Write | VariadicKeys, FirstKeyPos: -1, LastKeyPos: -1, KeyStep: 1},
	"EVALSHA": {Name: "EVALSHA", Flags: Write | VariadicKeys, FirstKeyPos: -1, LastKeyPos: -1, KeyStep: 1},

	"ZUNIONSTORE": {Name: "ZUNIONSTORE", Flags: Write | VariadicKeys, Bonus: 1},
	"SINTERSTORE": {Name: "SINTERSTORE", Flags: Write | VariadicKeys, Bonus: 1},

	"FLUSHDB": {Name: "FLUSHDB", Flags: Write | GlobalTrans},
	"FLUSHALL": {Name: "FLUSHALL", Flags: Write | GlobalTrans},

	// BLPOP/BRPOP take one or more keys followed by a trailing timeout,
	// so the timeout (last argument) is excluded via a relative LastKeyPos
	// rather than treated as a VariadicKeys count argument.
	"BLPOP": {Name: "BLPOP", Flags: Write, FirstKeyPos: 1, LastKeyPos: -2, KeyStep: 1},
	"BRPOP": {Name: "BRPOP", Flags: Write, FirstKeyPos: 1, LastKeyPos: -2, KeyStep: 1},
}

// Lookup returns the descriptor for a command name, case-sensitive on the
// canonical upper-case name the way the rest of the table is keyed.
func Lookup(name string) (*Descriptor, bool) {
	d, ok := Table[name]
	return d, ok
}
