// Package search implements the position-search engine: depth-bounded,
// time-bounded negamax with alpha-beta pruning and iterative deepening,
// backed by a transposition table, killer moves and deterministic move
// ordering. Scores follow the negamax convention throughout: every value is
// relative to the side to move at the node being scored.
package search

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hindsight-chess/hindsight/eval"
	"github.com/hindsight-chess/hindsight/rules"
)

const (
	// MaxPly caps the search depth and sizes the killer table.
	MaxPly     = 64
	maxKillers = 2
	// The clock is polled once per this many nodes, so a time-budget
	// overshoot is bounded by the cost of expanding that many nodes.
	timeCheckInterval = 1024
)

// SearchResult is the outcome of one search invocation. A nil BestMove
// signals a terminal position with no legal moves; it is not an error.
type SearchResult struct {
	BestMove *chess.Move
	Score    eval.Score
	Nodes    uint64
	Elapsed  time.Duration
	Depth    int
	PV       []*chess.Move
}

// Solver runs searches against a single game. It must not be shared across
// concurrent searches: the rules engine's apply/undo protocol is not safe
// under concurrent mutation of one position stack.
type Solver struct {
	game   *rules.Game
	ttable *TranspositionTable

	iterativeDeepeningOptim bool
	killerPlayOptim         bool
	transpositionTableOptim bool
}

// Init points the solver at a game and a transposition table. A nil table
// gets allocated lazily on the first Solve with a default memory fraction.
func (s *Solver) Init(g *rules.Game, tt *TranspositionTable) {
	s.game = g
	s.ttable = tt
	s.iterativeDeepeningOptim = true
	s.killerPlayOptim = true
	s.transpositionTableOptim = true
}

// SetIterativeDeepening toggles deepening from depth 1; when off, the
// search runs a single iteration at the requested depth.
func (s *Solver) SetIterativeDeepening(id bool) {
	s.iterativeDeepeningOptim = id
}

// SetKillerPlayOptim toggles the killer-move ordering heuristic.
func (s *Solver) SetKillerPlayOptim(k bool) {
	s.killerPlayOptim = k
}

// SetTranspositionTableOptim toggles position-cache memoization. Neither
// toggle changes search values at a fixed depth; memoized hits can carry
// scores from deeper searches of transposed lines, which matters when
// comparing against a fixed-depth reference.
func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

// Game returns the game the solver searches.
func (s *Solver) Game() *rules.Game {
	return s.game
}

// searchState is the per-invocation mutable state of one Solve call. It is
// created fresh for every search so a Solver carries nothing stale between
// invocations.
type searchState struct {
	game        *rules.Game
	ttable      *TranspositionTable
	killers     [MaxPly][maxKillers]*chess.Move
	nodes       atomic.Uint64
	deadline    time.Time
	hasDeadline bool
	timedOut    bool
	useTT       bool
	useKillers  bool
	rootOrdered bool
}

func (st *searchState) visitNode(ctx context.Context) {
	if n := st.nodes.Add(1); n%timeCheckInterval == 0 && !st.timedOut {
		if ctx.Err() != nil || (st.hasDeadline && time.Now().After(st.deadline)) {
			st.timedOut = true
		}
	}
}

func storeKiller(killers *[maxKillers]*chess.Move, m *chess.Move) {
	if !sameMove(m, killers[0]) {
		killers[1] = killers[0]
		killers[0] = m
	}
}

func isQuiet(m *chess.Move) bool {
	return !m.HasTag(chess.Capture) && !m.HasTag(chess.EnPassant) &&
		m.Promo() == chess.NoPieceType
}

func (s *Solver) negamax(ctx context.Context, st *searchState, depth, ply int, α, β eval.Score, pv *PVLine) eval.Score {
	st.visitNode(ctx)
	g := st.game
	if st.timedOut {
		// Budget exhausted: fall back to the static score and unwind.
		return eval.Evaluate(g.Position())
	}

	switch g.Terminal() {
	case rules.Checkmate:
		// Closer mates score higher, so the search prefers the shortest one.
		return -(eval.MateScore - eval.Score(ply))
	case rules.Stalemate, rules.Draw:
		return eval.DrawScore
	}
	if depth == 0 {
		return eval.Evaluate(g.Position())
	}

	alphaOrig := α
	nodeKey := g.Key()
	var ttMove tinyMove
	var ttEntry TableEntry
	if st.useTT {
		ttEntry = st.ttable.lookup(nodeKey)
	}
	if ttEntry.valid() {
		if ttEntry.depth() >= depth {
			score := ttEntry.score
			switch ttEntry.flag() {
			case TTExact:
				return score
			case TTLower:
				α = max(α, score)
			case TTUpper:
				β = min(β, score)
			}
			if α >= β {
				return score
			}
		}
		// search hash move first.
		ttMove = ttEntry.move()
	}

	children := g.LegalMoves()
	var killers *[maxKillers]*chess.Move
	if st.useKillers && ply < MaxPly {
		killers = &st.killers[ply]
	}
	orderMoves(g.Position().Board(), children, killers, ttMove)

	childPV := PVLine{}
	bestValue := -eval.Infinity
	var bestMove *chess.Move
	for _, child := range children {
		g.Apply(child)
		value := s.negamax(ctx, st, depth-1, ply+1, -β, -α, &childPV)
		g.Undo()
		if -value > bestValue {
			bestValue = -value
			bestMove = child
			pv.Update(child, childPV, bestValue)
		}
		α = max(α, bestValue)
		if bestValue >= β {
			if killers != nil && isQuiet(child) {
				storeKiller(killers, child)
			}
			break // beta cut-off
		}
		childPV.Clear()
	}

	// Scores from a truncated subtree are not exact; mate scores encode a
	// root-relative ply distance. Neither belongs in the table.
	if st.useTT && !st.timedOut && !eval.IsMateScore(bestValue) {
		entry := TableEntry{
			score: bestValue,
			play:  moveToTiny(bestMove),
		}
		var flag uint8
		if bestValue <= alphaOrig {
			flag = TTUpper
		} else if bestValue >= β {
			flag = TTLower
		} else {
			flag = TTExact
		}
		entry.flagAndDepth = flag<<6 + uint8(depth&depthMask)
		st.ttable.store(nodeKey, entry)
	}
	return bestValue
}

// searchRoot mirrors the recursive step but tracks which move produced the
// best score. After a fully-completed iteration it reorders moves by their
// returned values so the next deepening iteration searches the most
// promising lines first.
func (s *Solver) searchRoot(ctx context.Context, st *searchState, moves []*chess.Move, depth int, pv *PVLine) (eval.Score, *chess.Move) {
	g := st.game
	α, β := -eval.Infinity, eval.Infinity
	bestValue := -eval.Infinity
	var bestMove *chess.Move

	if !st.rootOrdered {
		// First deepening iteration: heuristic order. Later iterations
		// keep the value order established below.
		orderMoves(g.Position().Board(), moves, &st.killers[0], 0)
		st.rootOrdered = true
	}

	values := make([]eval.Score, len(moves))
	searched := 0
	childPV := PVLine{}
	for i, m := range moves {
		g.Apply(m)
		value := -s.negamax(ctx, st, depth-1, 1, -β, -α, &childPV)
		g.Undo()
		if st.timedOut {
			break
		}
		values[i] = value
		searched = i + 1
		if value > bestValue || bestMove == nil {
			bestValue = value
			bestMove = m
			pv.Update(m, childPV, value)
		}
		α = max(α, bestValue)
		childPV.Clear()
	}

	if !st.timedOut && searched == len(moves) {
		idx := make([]int, len(moves))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			return values[idx[i]] > values[idx[j]]
		})
		ordered := make([]*chess.Move, len(moves))
		for i, j := range idx {
			ordered[i] = moves[j]
		}
		copy(moves, ordered)
	}
	return bestValue, bestMove
}

// Solve searches the solver's game with iterative deepening from depth 1 up
// to maxDepth within the given time budget. Exceeding the budget is not a
// failure: the result of the deepest fully-completed iteration is returned
// with its (reduced) depth. Zero legal moves at the root yields a result
// with a nil BestMove and the terminal score.
func (s *Solver) Solve(ctx context.Context, maxDepth int, maxTime time.Duration) (*SearchResult, error) {
	tstart := time.Now()
	if s.ttable == nil {
		s.ttable = &TranspositionTable{}
		s.ttable.Reset(0.10)
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > MaxPly {
		maxDepth = MaxPly
	}

	g := s.game
	rootKey := g.Key()
	rootMoves := g.LegalMoves()
	if len(rootMoves) == 0 {
		score := eval.Evaluate(g.Position())
		if g.Terminal() == rules.Checkmate {
			score = -eval.MateScore
		}
		log.Debug().Uint64("key", rootKey).Int16("score", int16(score)).
			Msg("no-legal-moves")
		return &SearchResult{Score: score, Elapsed: time.Since(tstart)}, nil
	}

	st := &searchState{
		game:       g,
		ttable:     s.ttable,
		useTT:      s.transpositionTableOptim,
		useKillers: s.killerPlayOptim,
	}
	if maxTime > 0 {
		st.deadline = tstart.Add(maxTime)
		st.hasDeadline = true
	}

	eg := &errgroup.Group{}
	done := make(chan bool)
	eg.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes uint64
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := st.nodes.Load()
				log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	})

	var result SearchResult
	completedDepth := 0
	startDepth := 1
	if !s.iterativeDeepeningOptim {
		startDepth = maxDepth
	}
	for p := startDepth; p <= maxDepth; p++ {
		pv := PVLine{}
		score, bestMove := s.searchRoot(ctx, st, rootMoves, p, &pv)
		if st.timedOut {
			if completedDepth == 0 {
				// No full iteration finished; report the partial one.
				if bestMove == nil {
					bestMove = rootMoves[0]
					score = eval.Evaluate(g.Position())
				}
				result = SearchResult{BestMove: bestMove, Score: score, Depth: p, PV: pv.Moves}
			}
			break
		}
		completedDepth = p
		result = SearchResult{BestMove: bestMove, Score: score, Depth: p, PV: pv.Moves}
		log.Debug().Int("ply", p).Int16("score", int16(score)).
			Str("pv", pv.NLBString()).Msg("deepening-iteratively")
	}
	done <- true
	_ = eg.Wait()

	result.Nodes = st.nodes.Load()
	result.Elapsed = time.Since(tstart)
	log.Debug().
		Uint64("ttable-created", s.ttable.created.Load()).
		Uint64("ttable-lookups", s.ttable.lookups.Load()).
		Uint64("ttable-hits", s.ttable.hits.Load()).
		Uint64("ttable-t2collisions", s.ttable.t2collisions.Load()).
		Uint64("nodes", result.Nodes).
		Int("depth", result.Depth).
		Float64("time-elapsed-sec", result.Elapsed.Seconds()).
		Msg("solve-returning")
	return &result, nil
}
