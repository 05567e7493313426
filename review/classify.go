package review

import (
	"fmt"

	"github.com/hindsight-chess/hindsight/eval"
)

// Label is the qualitative judgment of a played move.
type Label int

const (
	Excellent Label = iota
	Good
	Inaccuracy
	Mistake
	Blunder
	// ForcedMate marks plies where either evaluation is in the mate range;
	// a numeric delta is meaningless there.
	ForcedMate
)

func (l Label) String() string {
	switch l {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Inaccuracy:
		return "Inaccuracy"
	case Mistake:
		return "Mistake"
	case Blunder:
		return "Blunder"
	case ForcedMate:
		return "Forced mate"
	default:
		return "Unknown"
	}
}

// Judgment pairs a label with a human-readable explanation.
type Judgment struct {
	Label       Label
	Explanation string
}

// Bucket boundaries in centipawns. Compared with <=, so a delta landing
// exactly on a boundary resolves to the lower-severity bucket.
const (
	excellentMax  = 30
	goodMax       = 80
	inaccuracyMax = 150
	mistakeMax    = 300
)

// Classify converts a pair of successive evaluations into a move judgment.
// Both scores must be expressed under the same fixed convention
// (White-relative centipawns, as stored by the reviewer); mixing
// side-to-move-relative and White-relative scores across plies produces
// meaningless deltas.
func Classify(current, previous eval.Score) Judgment {
	if eval.IsMateScore(current) || eval.IsMateScore(previous) {
		s := current
		if !eval.IsMateScore(s) {
			s = previous
		}
		side := "White"
		if s < 0 {
			side = "Black"
		}
		return Judgment{
			Label:       ForcedMate,
			Explanation: fmt.Sprintf("mate for %s", side),
		}
	}

	delta := current - previous
	if delta < 0 {
		delta = -delta
	}
	pawns := float64(delta) / 100

	switch {
	case delta <= excellentMax:
		return Judgment{Excellent, fmt.Sprintf("evaluation held steady (%.2f pawns)", pawns)}
	case delta <= goodMax:
		return Judgment{Good, fmt.Sprintf("evaluation shifted by %.2f pawns", pawns)}
	case delta <= inaccuracyMax:
		return Judgment{Inaccuracy, fmt.Sprintf("evaluation shifted by %.2f pawns", pawns)}
	case delta <= mistakeMax:
		return Judgment{Mistake, fmt.Sprintf("evaluation shifted by %.2f pawns", pawns)}
	default:
		return Judgment{Blunder, fmt.Sprintf("evaluation shifted by %.2f pawns", pawns)}
	}
}
