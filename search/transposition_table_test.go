package search

import (
	"testing"

	"github.com/matryer/is"

	"github.com/hindsight-chess/hindsight/eval"
)

func TestTTableEntry(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.ResetSized(12)
	is.Equal(tt.Len(), 1<<12)

	tentry := TableEntry{
		score:        12,
		flagAndDepth: TTUpper<<6 + 23,
	}
	tt.store(9409641586937047728, tentry)

	te := tt.lookup(9409641586937047728)
	is.True(te.valid())
	is.Equal(te.depth(), 23)
	is.Equal(te.flag(), uint8(TTUpper))
	is.Equal(te.score, eval.Score(12))

	is.Equal(tt.t2collisions.Load(), uint64(0))
	// A different key mapping to the same slot is a type-2 collision.
	te = tt.lookup(9409641586937047728 + (1 << 12))
	is.True(!te.valid())
	is.Equal(tt.t2collisions.Load(), uint64(1))

	// An empty slot is a plain miss, not a collision.
	te = tt.lookup(9409641586937047728 + 1)
	is.True(!te.valid())
	is.Equal(tt.lookups.Load(), uint64(3))
	is.Equal(tt.t2collisions.Load(), uint64(1))
}

func TestTTableDepthTrust(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.ResetSized(12)

	tt.Store(777, 4, 55)

	// A deeper request than the stored search is a miss.
	_, ok := tt.Lookup(777, 5)
	is.True(!ok)

	score, ok := tt.Lookup(777, 4)
	is.True(ok)
	is.Equal(score, eval.Score(55))

	score, ok = tt.Lookup(777, 3)
	is.True(ok)
	is.Equal(score, eval.Score(55))

	_, ok = tt.Lookup(778, 1)
	is.True(!ok)
}

func TestTTableBoundLookupIsNotExact(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.ResetSized(12)

	tt.store(42, TableEntry{score: 90, flagAndDepth: TTLower<<6 + 8})

	// The exact-score interface must not surface bound entries.
	_, ok := tt.Lookup(42, 2)
	is.True(!ok)

	te := tt.lookup(42)
	is.True(te.valid())
	is.Equal(te.flag(), uint8(TTLower))
}

func TestTTableOverwriteEviction(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.ResetSized(12)

	k1 := uint64(1000)
	k2 := k1 + (1 << 12) // same slot
	tt.Store(k1, 3, 10)
	tt.Store(k2, 3, 20)

	_, ok := tt.Lookup(k1, 3)
	is.True(!ok)
	score, ok := tt.Lookup(k2, 3)
	is.True(ok)
	is.Equal(score, eval.Score(20))
	is.Equal(tt.Len(), 1<<12) // capacity never grows
}

func TestTTableReset(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.ResetSized(12)
	tt.Store(99, 5, 33)

	tt.ResetSized(12)
	_, ok := tt.Lookup(99, 1)
	is.True(!ok)
	is.Equal(tt.created.Load(), uint64(0))

	// Sizes clamp to the supported power-of-2 range.
	tt.ResetSized(2)
	is.Equal(tt.Len(), 1<<10)
}
