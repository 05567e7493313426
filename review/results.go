package review

import (
	"github.com/notnil/chess"

	"github.com/hindsight-chess/hindsight/eval"
)

// MoveReview contains the judgment of a single played move. All scores are
// White-relative centipawns.
type MoveReview struct {
	MoveNumber int
	Ply        int // 1-indexed half-move
	Color      chess.Color
	SAN        string
	UCI        string

	ScoreBefore eval.Score
	ScoreAfter  eval.Score

	// The engine's preferred move in the position before this move.
	BestMove string
	// CentipawnLoss is how much worse the position got from the mover's
	// point of view. Zero for moves the engine agrees with.
	CentipawnLoss int

	Judgment Judgment
}

// PlayerSummary aggregates a player's move quality across the game.
type PlayerSummary struct {
	Name        string
	Color       chess.Color
	MovesPlayed int

	Excellent    int
	Good         int
	Inaccuracies int
	Mistakes     int
	Blunders     int

	AvgCentipawnLoss float64
	// Accuracy is the share of moves judged Excellent or Good, in percent.
	Accuracy float64
}

// GameReview is the complete review of one finished game.
type GameReview struct {
	Moves []*MoveReview
	White *PlayerSummary
	Black *PlayerSummary
}
