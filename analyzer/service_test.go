package analyzer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsight-chess/hindsight/eval"
	"github.com/hindsight-chess/hindsight/review"
	"github.com/hindsight-chess/hindsight/rules"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

const (
	startFEN     = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	mateInOneFEN = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	matedFEN     = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 0 3"
)

func TestAnalyzeStartingPosition(t *testing.T) {
	s := NewService(14)
	ch, err := s.Analyze(context.Background(), Request{
		FEN:      startFEN,
		MaxDepth: 2,
		MaxTime:  10 * time.Second,
	})
	require.NoError(t, err)

	resp := <-ch
	require.NoError(t, resp.Err)
	require.NotNil(t, resp.Result)
	require.NotNil(t, resp.Result.BestMove)
	assert.Nil(t, resp.Judgment) // no previous score in the request
	assert.True(t, resp.Score > -100 && resp.Score < 100)
}

func TestAnalyzeNormalizesToWhiteRelative(t *testing.T) {
	// Black to move, down a rook: the search score is positive for the
	// side to move, the response score is negative for White.
	s := NewService(14)
	ch, err := s.Analyze(context.Background(), Request{
		FEN:      "r5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1",
		MaxDepth: 2,
		MaxTime:  10 * time.Second,
	})
	require.NoError(t, err)

	resp := <-ch
	require.NoError(t, resp.Err)
	assert.True(t, resp.Result.Score > 300)
	assert.True(t, resp.Score < -300)
}

func TestAnalyzeInvalidPositionFailsFast(t *testing.T) {
	s := NewService(14)
	_, err := s.Analyze(context.Background(), Request{FEN: "not a fen", MaxDepth: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrInvalidPosition)

	// The failed request leaves the service free for the next one.
	ch, err := s.Analyze(context.Background(), Request{
		FEN:      startFEN,
		MaxDepth: 1,
		MaxTime:  10 * time.Second,
	})
	require.NoError(t, err)
	resp := <-ch
	require.NoError(t, resp.Err)
}

func TestAnalyzeRejectsConcurrentRequests(t *testing.T) {
	s := NewService(14)
	ch, err := s.Analyze(context.Background(), Request{
		FEN:      startFEN,
		MaxDepth: 30,
		MaxTime:  2 * time.Second,
	})
	require.NoError(t, err)

	// A second request while the first is still searching is refused
	// without disturbing the one in flight.
	_, err = s.Analyze(context.Background(), Request{FEN: startFEN, MaxDepth: 1})
	assert.ErrorIs(t, err, ErrAnalysisInFlight)

	resp := <-ch
	require.NoError(t, resp.Err)
	require.NotNil(t, resp.Result.BestMove)

	// Once the response is delivered the service accepts work again.
	ch, err = s.Analyze(context.Background(), Request{
		FEN:      startFEN,
		MaxDepth: 1,
		MaxTime:  10 * time.Second,
	})
	require.NoError(t, err)
	resp = <-ch
	require.NoError(t, resp.Err)
}

func TestAnalyzeTerminalPosition(t *testing.T) {
	s := NewService(14)
	ch, err := s.Analyze(context.Background(), Request{
		FEN:      matedFEN,
		MaxDepth: 2,
		MaxTime:  10 * time.Second,
	})
	require.NoError(t, err)

	resp := <-ch
	require.NoError(t, resp.Err)
	assert.Nil(t, resp.Result.BestMove)
	// White is checkmated; White-relative, that is the bottom of the scale.
	assert.Equal(t, -eval.MateScore, resp.Score)
}

func TestAnalyzeJudgesAgainstPreviousScore(t *testing.T) {
	s := NewService(14)
	prev := eval.Score(0)
	ch, err := s.Analyze(context.Background(), Request{
		FEN:           mateInOneFEN,
		MaxDepth:      2,
		MaxTime:       10 * time.Second,
		PreviousScore: &prev,
	})
	require.NoError(t, err)

	resp := <-ch
	require.NoError(t, resp.Err)
	require.NotNil(t, resp.Judgment)
	// White to move has a mate in one, so the judgment is mate-based.
	assert.Equal(t, review.ForcedMate, resp.Judgment.Label)
	assert.Equal(t, "a1a8", resp.Result.BestMove.String())
}

func TestAnalyzeSnapshotIsolation(t *testing.T) {
	// The request carries the position by value; analysis cannot touch the
	// caller's game.
	g := chess.NewGame()
	fen := g.Position().String()

	s := NewService(14)
	ch, err := s.Analyze(context.Background(), Request{
		FEN:      fen,
		MaxDepth: 2,
		MaxTime:  10 * time.Second,
	})
	require.NoError(t, err)
	<-ch
	assert.Equal(t, fen, g.Position().String())
}
