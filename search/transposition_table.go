package search

import (
	"math"
	"sync/atomic"

	"github.com/notnil/chess"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/hindsight-chess/hindsight/eval"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 16

const depthMask = (1 << 6) - 1

// tinyMove packs a chess move into 16 bits: 6 bits origin square, 6 bits
// destination square, 3 bits promotion piece type. The zero value doubles
// as "no move".
type tinyMove uint16

func moveToTiny(m *chess.Move) tinyMove {
	if m == nil {
		return 0
	}
	return tinyMove(uint16(m.S1()) | uint16(m.S2())<<6 | uint16(m.Promo())<<12)
}

func (t tinyMove) matches(m *chess.Move) bool {
	return t != 0 && t == moveToTiny(m)
}

// TableEntry is a packed transposition-table record.
type TableEntry struct {
	key          uint64
	score        eval.Score
	flagAndDepth uint8
	play         tinyMove
}

func (t TableEntry) flag() uint8 {
	return t.flagAndDepth >> 6
}

func (t TableEntry) depth() int {
	return int(t.flagAndDepth & depthMask)
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag() != 0
}

func (t TableEntry) move() tinyMove {
	return t.play
}

// TranspositionTable memoizes scored positions by canonical key. It is a
// fixed-size power-of-2 array; colliding keys overwrite the previous
// occupant, which bounds memory without any separate eviction bookkeeping.
type TranspositionTable struct {
	table        []TableEntry
	sizePowerOf2 int
	sizeMask     uint64
	created      atomic.Uint64
	lookups      atomic.Uint64
	hits         atomic.Uint64
	// A "type 2" collision is two positions sharing the same table slot.
	// Full-key collisions are possible but vastly rarer, and undetectable
	// here; we accept them the way every transposition table does.
	t2collisions atomic.Uint64
}

func (t *TranspositionTable) lookup(key uint64) TableEntry {
	t.lookups.Add(1)
	idx := key & t.sizeMask
	entry := t.table[idx]
	if entry.key != key {
		if entry.valid() {
			t.t2collisions.Add(1)
		}
		return TableEntry{}
	}
	t.hits.Add(1)
	return entry
}

func (t *TranspositionTable) store(key uint64, entry TableEntry) {
	idx := key & t.sizeMask
	entry.key = key
	// just overwrite whatever is there.
	t.table[idx] = entry
	t.created.Add(1)
}

// Lookup returns the memoized score for key, but only when the stored entry
// was searched to at least minDepth and carries an exact score. A shallower
// entry is a miss: the caller must re-derive the score.
func (t *TranspositionTable) Lookup(key uint64, minDepth int) (eval.Score, bool) {
	entry := t.lookup(key)
	if !entry.valid() || entry.flag() != TTExact || entry.depth() < minDepth {
		return 0, false
	}
	return entry.score, true
}

// Store records an exact score searched to the given depth.
func (t *TranspositionTable) Store(key uint64, depth int, score eval.Score) {
	t.store(key, TableEntry{
		score:        score,
		flagAndDepth: TTExact<<6 + uint8(depth&depthMask),
	})
}

// Reset sizes the table to the largest power of two fitting in the given
// fraction of system memory and clears it. The table must be reset between
// unrelated games; keys are game-state specific but memory is not free.
func (t *TranspositionTable) Reset(fractionOfMemory float64) {
	desiredNElems := fractionOfMemory * (float64(memory.TotalMemory()) / float64(entrySize))
	powerOf2 := int(math.Log2(desiredNElems))
	t.ResetSized(powerOf2)
}

// ResetSized sizes the table to 2^powerOf2 entries and clears it.
func (t *TranspositionTable) ResetSized(powerOf2 int) {
	if powerOf2 < 10 {
		powerOf2 = 10
	}
	if powerOf2 > 28 {
		powerOf2 = 28
	}
	t.sizePowerOf2 = powerOf2
	numElems := 1 << powerOf2
	t.sizeMask = uint64(numElems - 1)
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]TableEntry, numElems)
	}

	log.Debug().Int("num-elems", numElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Bool("reset", reset).
		Msg("transposition-table-size")

	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}

// Len returns the bounded capacity of the table in entries.
func (t *TranspositionTable) Len() int {
	return len(t.table)
}
