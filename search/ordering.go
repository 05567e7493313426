package search

import (
	"sort"

	"github.com/notnil/chess"

	"github.com/hindsight-chess/hindsight/eval"
)

// Move ordering offsets. Ordering never changes the move set or the final
// score of an exhaustive search, only how quickly alpha-beta prunes; on an
// exact score tie it decides which move is reported best, so it has to be
// deterministic for identical inputs.
const (
	hashMoveOffset = 20000
	captureOffset  = 10000
	promoOffset    = 8000
	killer0Offset  = 6000
	killer1Offset  = 5900
)

func sameMove(a, b *chess.Move) bool {
	if a == nil || b == nil {
		return false
	}
	return a.S1() == b.S1() && a.S2() == b.S2() && a.Promo() == b.Promo()
}

// assignEstimates scores each move for traversal order: the hash move first,
// then captures by most-valuable-victim/least-valuable-attacker, then
// promotions, then killer moves, then the remaining quiet moves in
// generation order.
func assignEstimates(board *chess.Board, moves []*chess.Move, killers *[maxKillers]*chess.Move, ttMove tinyMove) []int {
	estimates := make([]int, len(moves))
	for i, m := range moves {
		est := 0
		if m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant) {
			victim := board.Piece(m.S2()).Type()
			attacker := board.Piece(m.S1()).Type()
			if victim == chess.NoPieceType {
				victim = chess.Pawn // en passant capture square is empty
			}
			est = captureOffset + int(eval.PieceValue(victim)) - int(eval.PieceValue(attacker))/10
		}
		if m.Promo() != chess.NoPieceType {
			est += promoOffset + int(eval.PieceValue(m.Promo()))
		}
		if est == 0 && killers != nil {
			// Killer bonuses apply to quiet moves only.
			if sameMove(m, killers[0]) {
				est = killer0Offset
			} else if sameMove(m, killers[1]) {
				est = killer1Offset
			}
		}
		if ttMove.matches(m) {
			est += hashMoveOffset
		}
		estimates[i] = est
	}
	return estimates
}

// orderMoves sorts moves in place by descending estimate. The sort is
// stable, so equally-estimated moves keep the rules engine's generation
// order and the search is reproducible.
func orderMoves(board *chess.Board, moves []*chess.Move, killers *[maxKillers]*chess.Move, ttMove tinyMove) {
	estimates := assignEstimates(board, moves, killers, ttMove)
	idx := make([]int, len(moves))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return estimates[idx[i]] > estimates[idx[j]]
	})
	ordered := make([]*chess.Move, len(moves))
	for i, j := range idx {
		ordered[i] = moves[j]
	}
	copy(moves, ordered)
}
