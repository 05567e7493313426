// Package analyzer is the thin orchestration layer in front of the search
// engine. It runs one analysis at a time as a background task and talks to
// its caller by message passing: a request carrying a position snapshot, a
// response carrying a result or a typed failure.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"

	"github.com/hindsight-chess/hindsight/eval"
	"github.com/hindsight-chess/hindsight/review"
	"github.com/hindsight-chess/hindsight/rules"
	"github.com/hindsight-chess/hindsight/search"
)

var (
	// ErrAnalysisInFlight is returned when a new request arrives while one
	// is outstanding. The rules engine's apply/undo protocol is not safe
	// under concurrent mutation, so the session never runs two analyses.
	ErrAnalysisInFlight = errors.New("an analysis is already in flight")
	// ErrEngineInternal wraps unexpected faults raised during node
	// expansion. The host process stays up; the analysis does not.
	ErrEngineInternal = errors.New("internal engine error")
)

// Request asks for an analysis of one position. The FEN string is the
// position snapshot: it is copied by value at this boundary, so the
// caller's live position is never touched by the engine.
type Request struct {
	FEN      string
	MaxDepth int
	MaxTime  time.Duration

	// PreviousScore, when set, is the White-relative score of the position
	// one ply earlier; it enables a move-quality judgment of the move that
	// led here.
	PreviousScore *eval.Score
}

// Response carries either a search result or a typed failure.
type Response struct {
	Result *search.SearchResult
	// Score is Result.Score normalized to White-relative centipawns.
	Score eval.Score
	// Judgment is present only when the request carried a previous score.
	Judgment *review.Judgment
	Err      error
}

// Service runs analyses for one session. The transposition table persists
// across calls to amortize cost within a game; call NewGame when switching
// to an unrelated game.
type Service struct {
	mu       sync.Mutex
	inFlight bool

	ttable        *search.TranspositionTable
	cachePowerOf2 int
}

// NewService creates a session service whose position cache holds
// 2^cachePowerOf2 entries.
func NewService(cachePowerOf2 int) *Service {
	tt := &search.TranspositionTable{}
	tt.ResetSized(cachePowerOf2)
	return &Service{ttable: tt, cachePowerOf2: cachePowerOf2}
}

// NewGame discards all cached positions. Keys are game-state specific, so
// cross-game reuse is merely useless, but the memory is not.
func (s *Service) NewGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttable.ResetSized(s.cachePowerOf2)
}

// Analyze validates the snapshot, then searches it asynchronously. The
// returned channel receives exactly one Response. Invalid positions fail
// immediately, before any search starts.
func (s *Service) Analyze(ctx context.Context, req Request) (<-chan Response, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrAnalysisInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	g, err := rules.NewGameFromFEN(req.FEN)
	if err != nil {
		s.release()
		return nil, err
	}

	ch := make(chan Response, 1)
	go func() {
		defer s.release()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("fen", req.FEN).
					Msg("search panicked")
				ch <- Response{Err: fmt.Errorf("%w: %v", ErrEngineInternal, r)}
			}
		}()
		ch <- s.run(ctx, g, req)
	}()
	return ch, nil
}

func (s *Service) run(ctx context.Context, g *rules.Game, req Request) Response {
	solver := &search.Solver{}
	solver.Init(g, s.ttable)
	res, err := solver.Solve(ctx, req.MaxDepth, req.MaxTime)
	if err != nil {
		return Response{Err: fmt.Errorf("%w: %v", ErrEngineInternal, err)}
	}

	white := res.Score
	if g.SideToMove() == chess.Black {
		white = -white
	}
	resp := Response{Result: res, Score: white}
	if req.PreviousScore != nil {
		j := review.Classify(white, *req.PreviousScore)
		resp.Judgment = &j
	}
	return resp
}

func (s *Service) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}
