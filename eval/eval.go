// Package eval scores static chess positions in centipawns.
//
// Every score is expressed relative to the side to move (the negamax
// convention): a positive score means the player whose turn it is stands
// better. The search engine relies on this convention end to end; anything
// reported in White-relative terms is converted at the review layer, never
// here.
package eval

import (
	"github.com/notnil/chess"

	"github.com/hindsight-chess/hindsight/rules"
)

// Score is a position evaluation in centipawns, side-to-move relative.
type Score int16

const (
	// MateScore is the mate constant: a magnitude no material evaluation
	// can reach, reserved for checkmated positions.
	MateScore Score = 30000
	// MateThreshold separates mate-range scores from material scores.
	MateThreshold Score = 29000
	// Infinity bounds the alpha-beta window. Strictly above any
	// representable score, and safely negatable within int16.
	Infinity Score = 32600
	// DrawScore is the score of any drawn terminal position.
	DrawScore Score = 0
)

// Feature weights, in centipawns per unit.
const (
	mobilityWeight     = 2
	activityWeight     = 2
	kingZoneWeight     = 8
	pawnShieldBonus    = 12
	doubledPawnPenalty = 25
)

// IsMateScore reports whether s is in the reserved mate range.
func IsMateScore(s Score) bool {
	return s >= MateThreshold || s <= -MateThreshold
}

// Evaluate scores a static position. It is deterministic and does not
// mutate pos. Checkmate returns -MateScore (the side to move is the mated
// side); stalemate and dead positions return DrawScore. Draws the rules
// engine can only detect with game history (repetition, the fifty-move
// rule) are resolved by the caller before evaluation.
func Evaluate(pos *chess.Position) Score {
	switch pos.Status() {
	case chess.Checkmate:
		return -MateScore
	case chess.Stalemate:
		return DrawScore
	}
	board := pos.Board()
	if rules.InsufficientMaterial(board) {
		return DrawScore
	}

	// White-relative terms.
	var score Score
	score += materialAndPlacement(board)
	score += kingSafety(board)
	score += pawnStructure(board)

	if pos.Turn() == chess.Black {
		score = -score
	}

	// Side-to-move-relative terms: mobility and piece activity both derive
	// from the legal moves of the player on turn.
	moves := pos.ValidMoves()
	score += Score(len(moves)) * mobilityWeight
	score += pieceActivity(board, moves)

	return score
}

func materialAndPlacement(b *chess.Board) Score {
	var score Score
	for sq := chess.A1; sq <= chess.H8; sq++ {
		p := b.Piece(sq)
		if p == chess.NoPiece {
			continue
		}
		v := pieceValues[p.Type()]
		if p.Color() == chess.White {
			score += v
		} else {
			score -= v
		}
		score += squareValue(p.Type(), p.Color(), sq)
	}
	return score
}

// kingSafety scores the net piece density around each king plus a bonus for
// pawns shielding the king on the rank in front of it.
func kingSafety(b *chess.Board) Score {
	return kingZone(b, chess.White) - kingZone(b, chess.Black)
}

func kingZone(b *chess.Board, color chess.Color) Score {
	kingSq := findKing(b, color)
	if kingSq == chess.NoSquare {
		return 0
	}
	var score Score
	kf, kr := int(kingSq.File()), int(kingSq.Rank())
	for df := -1; df <= 1; df++ {
		for dr := -1; dr <= 1; dr++ {
			if df == 0 && dr == 0 {
				continue
			}
			f, r := kf+df, kr+dr
			if f < 0 || f > 7 || r < 0 || r > 7 {
				continue
			}
			p := b.Piece(chess.NewSquare(chess.File(f), chess.Rank(r)))
			if p == chess.NoPiece {
				continue
			}
			if p.Color() == color {
				score += kingZoneWeight
			} else {
				score -= kingZoneWeight
			}
		}
	}
	// Pawn shield: friendly pawns directly ahead of the king.
	forward := 1
	shieldPawn := chess.WhitePawn
	if color == chess.Black {
		forward = -1
		shieldPawn = chess.BlackPawn
	}
	r := kr + forward
	if r >= 0 && r <= 7 {
		for f := kf - 1; f <= kf+1; f++ {
			if f < 0 || f > 7 {
				continue
			}
			if b.Piece(chess.NewSquare(chess.File(f), chess.Rank(r))) == shieldPawn {
				score += pawnShieldBonus
			}
		}
	}
	return score
}

func findKing(b *chess.Board, color chess.Color) chess.Square {
	target := chess.WhiteKing
	if color == chess.Black {
		target = chess.BlackKing
	}
	for sq := chess.A1; sq <= chess.H8; sq++ {
		if b.Piece(sq) == target {
			return sq
		}
	}
	return chess.NoSquare
}

// pawnStructure penalizes doubled pawns, per file and color.
func pawnStructure(b *chess.Board) Score {
	var whiteByFile, blackByFile [8]int8
	for sq := chess.A1; sq <= chess.H8; sq++ {
		switch b.Piece(sq) {
		case chess.WhitePawn:
			whiteByFile[sq.File()]++
		case chess.BlackPawn:
			blackByFile[sq.File()]++
		}
	}
	var score Score
	for f := 0; f < 8; f++ {
		if n := whiteByFile[f]; n > 1 {
			score -= Score(n-1) * doubledPawnPenalty
		}
		if n := blackByFile[f]; n > 1 {
			score += Score(n-1) * doubledPawnPenalty
		}
	}
	return score
}

// pieceActivity rewards non-pawn pieces in proportion to the legal moves
// they contribute for the side on turn.
func pieceActivity(b *chess.Board, moves []*chess.Move) Score {
	var score Score
	for _, m := range moves {
		pt := b.Piece(m.S1()).Type()
		if pt != chess.Pawn && pt != chess.NoPieceType {
			score += activityWeight
		}
	}
	return score
}
