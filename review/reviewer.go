// Package review judges the moves of a finished chess game: it evaluates
// every position with the search engine, classifies each played move by the
// evaluation swing it caused, and aggregates per-player summaries.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hindsight-chess/hindsight/eval"
	"github.com/hindsight-chess/hindsight/rules"
	"github.com/hindsight-chess/hindsight/search"
)

// Config holds the per-move search budget for a review.
type Config struct {
	MaxDepth int
	MoveTime time.Duration
	// CachePowerOf2 sizes the transposition table shared by all positions
	// of one game. Zero means a default size.
	CachePowerOf2 int
}

// DefaultConfig returns sensible review defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:      4,
		MoveTime:      2 * time.Second,
		CachePowerOf2: 20,
	}
}

// Reviewer analyzes completed games. The transposition table is retained
// across the positions of one game and reset at the start of the next, so
// nothing stale crosses game boundaries.
type Reviewer struct {
	cfg    Config
	ttable *search.TranspositionTable
}

// NewReviewer creates a Reviewer with the given config.
func NewReviewer(cfg Config) *Reviewer {
	return &Reviewer{cfg: cfg, ttable: &search.TranspositionTable{}}
}

// ReviewGame evaluates every ply of a PGN game and judges every move.
func (r *Reviewer) ReviewGame(ctx context.Context, pgn string) (*GameReview, error) {
	g := chess.NewGame()
	if err := g.UnmarshalText([]byte(pgn)); err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	positions := g.Positions()
	moves := g.Moves()
	if len(moves) == 0 {
		return nil, errors.New("game has no moves")
	}

	r.ttable.ResetSized(r.cfg.CachePowerOf2)

	// Evaluate every position once, normalized to White-relative scores.
	// Storing one fixed convention is what keeps the per-ply deltas
	// meaningful in Classify.
	scores := make([]eval.Score, len(positions))
	bestMoves := make([]*chess.Move, len(positions))
	for i, pos := range positions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		solver := &search.Solver{}
		solver.Init(rules.NewGameFromPosition(pos), r.ttable)
		res, err := solver.Solve(ctx, r.cfg.MaxDepth, r.cfg.MoveTime)
		if err != nil {
			return nil, fmt.Errorf("search at ply %d: %w", i, err)
		}
		score := res.Score
		if pos.Turn() == chess.Black {
			score = -score
		}
		scores[i] = score
		bestMoves[i] = res.BestMove
		log.Debug().Int("ply", i).Int16("white-score", int16(score)).
			Int("depth", res.Depth).Uint64("nodes", res.Nodes).
			Msg("reviewed-position")
	}

	reviews := make([]*MoveReview, 0, len(moves))
	for i, m := range moves {
		before, after := scores[i], scores[i+1]
		color := positions[i].Turn()

		loss := int(before) - int(after)
		if color == chess.Black {
			loss = -loss
		}
		if loss < 0 {
			loss = 0
		}

		best := ""
		if bestMoves[i] != nil {
			best = chess.AlgebraicNotation{}.Encode(positions[i], bestMoves[i])
		}

		reviews = append(reviews, &MoveReview{
			MoveNumber:    i/2 + 1,
			Ply:           i + 1,
			Color:         color,
			SAN:           chess.AlgebraicNotation{}.Encode(positions[i], m),
			UCI:           chess.UCINotation{}.Encode(nil, m),
			ScoreBefore:   before,
			ScoreAfter:    after,
			BestMove:      best,
			CentipawnLoss: loss,
			Judgment:      Classify(after, before),
		})
	}

	return &GameReview{
		Moves: reviews,
		White: summarize(reviews, chess.White, tagValue(g, "White")),
		Black: summarize(reviews, chess.Black, tagValue(g, "Black")),
	}, nil
}

func tagValue(g *chess.Game, key string) string {
	if tp := g.GetTagPair(key); tp != nil {
		return tp.Value
	}
	return ""
}

func summarize(reviews []*MoveReview, color chess.Color, name string) *PlayerSummary {
	own := lo.Filter(reviews, func(mr *MoveReview, _ int) bool {
		return mr.Color == color
	})
	s := &PlayerSummary{
		Name:        name,
		Color:       color,
		MovesPlayed: len(own),
	}
	if len(own) == 0 {
		return s
	}
	totalLoss := 0
	for _, mr := range own {
		totalLoss += mr.CentipawnLoss
		switch mr.Judgment.Label {
		case Excellent:
			s.Excellent++
		case Good:
			s.Good++
		case Inaccuracy:
			s.Inaccuracies++
		case Mistake:
			s.Mistakes++
		case Blunder:
			s.Blunders++
		}
	}
	s.AvgCentipawnLoss = float64(totalLoss) / float64(len(own))
	s.Accuracy = 100 * float64(s.Excellent+s.Good) / float64(len(own))
	return s
}
