// Package keyindex extracts the key range out of a command's raw arguments
// (spec.md §4.1, C4): given a command.Descriptor and argv, it determines
// which argument positions are keys without knowing anything about the
// command's actual semantics.
//
// Grounded on godis's PrepareFunc (other_examples/HDT3213-godis__doc.go),
// which returns a command's read/write key set ahead of execution; here the
// extraction is generalized to cover the descriptor's fixed-range, variadic
// and bonus-key shapes instead of a per-command switch.
package keyindex

import (
	"strconv"

	"github.com/zhenli1347/dragonfly/internal/command"
	"github.com/zhenli1347/dragonfly/internal/status"
)

// KeyIndex is the result of extraction: the start/end of the main key range
// within args (both inclusive, indexes into the full args where args[0] is
// the command name), the step between keys, and an optional bonus
// key position outside that range.
type KeyIndex struct {
	Start int // first key's index into args
	End   int // last key's index into args, inclusive
	Step  int
	Bonus int // index into args of a bonus key, -1 if none
	// TrailingValue marks a command with exactly one fixed key position
	// (FirstKeyPos == LastKeyPos, declared as an absolute position rather
	// than counted back from argc) that is followed by a value payload,
	// e.g. SET/EXPIRE. Every argument after the key rides along with it
	// into the same shard bucket.
	TrailingValue bool
}

// NumKeys reports how many main-range keys the index covers.
func (k KeyIndex) NumKeys() int {
	if k.Step <= 0 || k.End < k.Start {
		return 0
	}
	return (k.End-k.Start)/k.Step + 1
}

// Determine extracts a KeyIndex from a command's full argument vector
// (args[0] is the command name, matching the classic Redis argv convention
// the descriptor's FirstKeyPos/LastKeyPos/KeyStep are numbered against).
func Determine(cid *command.Descriptor, args [][]byte) (KeyIndex, status.Status) {
	if cid.Flags.Has(command.GlobalTrans) {
		return KeyIndex{Start: -1, End: -1, Bonus: -1}, status.OK
	}
	if cid.Flags.Has(command.VariadicKeys) {
		return determineVariadic(cid, args)
	}
	return determineFixed(cid, args)
}

func determineFixed(cid *command.Descriptor, args [][]byte) (KeyIndex, status.Status) {
	argc := len(args)
	last := cid.LastKeyPos
	if last < 0 {
		last = argc + last
	}
	if cid.FirstKeyPos <= 0 || last < cid.FirstKeyPos || last >= argc || cid.KeyStep <= 0 {
		return KeyIndex{}, status.SyntaxErr
	}
	if cid.KeyStep == 2 && (last-cid.FirstKeyPos+1)%2 != 0 {
		// A step==2 range alternates key, value, key, value, ...; an odd
		// count means a trailing key has no companion value (spec.md §8's
		// "step == 2 and odd arg-count" boundary case).
		return KeyIndex{}, status.SyntaxErr
	}

	bonus := -1
	if cid.Bonus > 0 {
		if cid.Bonus >= argc {
			return KeyIndex{}, status.SyntaxErr
		}
		bonus = cid.Bonus
	}
	trailingValue := cid.KeyStep == 1 && cid.LastKeyPos > 0 && cid.LastKeyPos == cid.FirstKeyPos
	return KeyIndex{Start: cid.FirstKeyPos, End: last, Step: cid.KeyStep, Bonus: bonus, TrailingValue: trailingValue}, status.OK
}

// determineVariadic handles the two variadic shapes in the registry: a
// "...STORE" command (destination key at position 1, then a count at
// position 2 followed by that many keys) and an EVAL-like command (a
// Lua-style numkeys count at position 2, no destination key).
func determineVariadic(cid *command.Descriptor, args [][]byte) (KeyIndex, status.Status) {
	argc := len(args)
	bonus := -1
	countPos := cid.Bonus + 1
	if cid.Bonus > 0 {
		if cid.Bonus >= argc {
			return KeyIndex{}, status.SyntaxErr
		}
		bonus = cid.Bonus
		countPos = cid.Bonus + 1
	} else if isEvalLike(cid.Name) {
		countPos = 2
	}
	if countPos >= argc {
		return KeyIndex{}, status.SyntaxErr
	}
	n, err := strconv.Atoi(string(args[countPos]))
	if err != nil || n < 0 {
		return KeyIndex{}, status.InvalidInt
	}
	if n == 0 {
		return KeyIndex{Start: -1, End: -1, Bonus: bonus}, status.OK
	}
	start := countPos + 1
	end := start + n - 1
	if end >= argc {
		return KeyIndex{}, status.SyntaxErr
	}
	return KeyIndex{Start: start, End: end, Step: 1, Bonus: bonus}, status.OK
}

func isEvalLike(name string) bool {
	return name == "EVAL" || name == "EVALSHA"
}
