package search

import (
	"fmt"

	"github.com/notnil/chess"

	"github.com/hindsight-chess/hindsight/eval"
)

// PVLine is the principal variation: the sequence of best play found so far.
type PVLine struct {
	Moves []*chess.Move
	score eval.Score
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = nil
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(move *chess.Move, newPVLine PVLine, score eval.Score) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, move)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

// GetPVMove returns the first move of the principal variation.
func (pvLine *PVLine) GetPVMove() *chess.Move {
	if len(pvLine.Moves) == 0 {
		return nil
	}
	return pvLine.Moves[0]
}

// NLBString renders the line on one line for logging.
func (pvLine PVLine) NLBString() string {
	s := fmt.Sprintf("PV; val %d; ", pvLine.score)
	for i := 0; i < len(pvLine.Moves); i++ {
		s += fmt.Sprintf("%d: %s; ", i+1, pvLine.Moves[i].String())
	}
	return s
}
