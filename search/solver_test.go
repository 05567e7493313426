package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/hindsight-chess/hindsight/eval"
	"github.com/hindsight-chess/hindsight/rules"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

const (
	startFEN     = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	kiwipeteFEN  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	mateInOneFEN = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	matedFEN     = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 0 3"
	stalemateFEN = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
)

func setUpSolver(fen string) (*Solver, error) {
	var g *rules.Game
	var err error
	if fen == "" {
		g = rules.NewGame()
	} else {
		g, err = rules.NewGameFromFEN(fen)
		if err != nil {
			return nil, err
		}
	}
	tt := &TranspositionTable{}
	tt.ResetSized(16)
	s := new(Solver)
	s.Init(g, tt)
	return s, nil
}

func TestSolveStartingPosition(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver("")
	is.NoErr(err)

	res, err := s.Solve(context.Background(), 3, 30*time.Second)
	is.NoErr(err)
	is.True(res.BestMove != nil)
	is.Equal(res.Depth, 3)
	is.True(res.Nodes > 0)
	// The opening position is near equal; no depth-3 line wins a pawn.
	is.True(res.Score > -100 && res.Score < 100)

	// The best move must be one of the legal root moves.
	found := false
	for _, m := range s.Game().LegalMoves() {
		if m.String() == res.BestMove.String() {
			found = true
		}
	}
	is.True(found)

	// Apply/undo symmetry: the game ends where it started.
	is.Equal(s.Game().Ply(), 0)
	is.Equal(s.Game().Position().String(), startFEN)
}

func TestSolveFindsMateInOne(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver(mateInOneFEN)
	is.NoErr(err)

	res, err := s.Solve(context.Background(), 3, 30*time.Second)
	is.NoErr(err)
	is.True(res.BestMove != nil)
	is.Equal(res.BestMove.String(), "a1a8")
	is.True(res.Score >= eval.MateThreshold)
	// Mate in one at the root scores one ply off the mate constant.
	is.Equal(res.Score, eval.MateScore-1)
}

func TestSolveCheckmatedRoot(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver(matedFEN)
	is.NoErr(err)

	res, err := s.Solve(context.Background(), 3, time.Second)
	is.NoErr(err)
	is.True(res.BestMove == nil)
	is.Equal(res.Score, -eval.MateScore)
}

func TestSolveStalematedRoot(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver(stalemateFEN)
	is.NoErr(err)

	res, err := s.Solve(context.Background(), 3, time.Second)
	is.NoErr(err)
	is.True(res.BestMove == nil)
	is.Equal(res.Score, eval.DrawScore)
}

// plainNegamax is an exhaustive fixed-depth reference without pruning,
// memoization or ordering. Alpha-beta must return the same value.
func plainNegamax(g *rules.Game, depth, ply int) eval.Score {
	switch g.Terminal() {
	case rules.Checkmate:
		return -(eval.MateScore - eval.Score(ply))
	case rules.Stalemate, rules.Draw:
		return eval.DrawScore
	}
	if depth == 0 {
		return eval.Evaluate(g.Position())
	}
	best := -eval.Infinity
	for _, m := range g.LegalMoves() {
		g.Apply(m)
		v := -plainNegamax(g, depth-1, ply+1)
		g.Undo()
		if v > best {
			best = v
		}
	}
	return best
}

func TestPruningMatchesPlainMinimax(t *testing.T) {
	is := is.New(t)
	for _, fen := range []string{"", kiwipeteFEN, mateInOneFEN} {
		for depth := 1; depth <= 3; depth++ {
			s, err := setUpSolver(fen)
			is.NoErr(err)
			// Memoized hits can carry values from deeper searches of
			// transposed lines, so the cache is off for this comparison.
			s.SetTranspositionTableOptim(false)

			res, err := s.Solve(context.Background(), depth, 0)
			is.NoErr(err)

			ref, err := setUpSolver(fen)
			is.NoErr(err)
			want := plainNegamax(ref.Game(), depth, 0)
			is.Equal(res.Score, want)
		}
	}
}

func TestSolveWithoutIterativeDeepening(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver(mateInOneFEN)
	is.NoErr(err)
	s.SetIterativeDeepening(false)

	res, err := s.Solve(context.Background(), 2, 30*time.Second)
	is.NoErr(err)
	is.Equal(res.BestMove.String(), "a1a8")
	is.Equal(res.Score, eval.MateScore-1)
}

func TestSolveTimeBudget(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver("")
	is.NoErr(err)

	tstart := time.Now()
	res, err := s.Solve(context.Background(), MaxPly, 100*time.Millisecond)
	is.NoErr(err)
	// The budget bounds the search; a depth-64 start-position search
	// cannot finish in 100ms.
	is.True(time.Since(tstart) < 5*time.Second)
	is.True(res.Depth < MaxPly)
	is.True(res.BestMove != nil)
	is.Equal(s.Game().Ply(), 0)
}

func TestSolveContextCancel(t *testing.T) {
	is := is.New(t)
	s, err := setUpSolver(kiwipeteFEN)
	is.NoErr(err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := s.Solve(ctx, MaxPly, 0)
	is.NoErr(err)
	is.True(res.BestMove != nil)
	is.Equal(s.Game().Ply(), 0)
}
