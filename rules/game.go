// Package rules adapts the notnil/chess rules engine to the narrow contract
// the search engine consumes: legal move generation, apply/undo over a
// position stack, terminal-state detection, and canonical position keys.
// No chess rules are implemented here.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/notnil/chess"
)

var ErrInvalidPosition = errors.New("invalid position")

// Termination describes the terminal status of a position.
type Termination int

const (
	NotTerminal Termination = iota
	Checkmate
	Stalemate
	Draw
)

func (t Termination) String() string {
	switch t {
	case NotTerminal:
		return "none"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Game holds a position and the stack of positions reached by Apply calls.
// notnil/chess positions are immutable values, so Apply pushes the updated
// position and Undo pops it; after any Apply/Undo pair the game is exactly
// the position it started from.
type Game struct {
	stack []*chess.Position
	// repetition counts by four-field FEN key, maintained incrementally so
	// threefold detection is O(1) at every node of a search.
	seen map[string]int
}

// NewGame returns a game at the standard starting position.
func NewGame() *Game {
	g := &Game{}
	g.push(chess.StartingPosition())
	return g
}

// NewGameFromFEN returns a game at the given position. It returns
// ErrInvalidPosition if the rules engine cannot parse the FEN.
func NewGameFromFEN(fen string) (*Game, error) {
	pos := &chess.Position{}
	if err := pos.UnmarshalText([]byte(fen)); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPosition, fen, err)
	}
	g := &Game{}
	g.push(pos)
	return g, nil
}

// NewGameFromPosition returns a game rooted at a snapshot of pos.
func NewGameFromPosition(pos *chess.Position) *Game {
	g := &Game{}
	g.push(pos)
	return g
}

func (g *Game) push(pos *chess.Position) {
	if g.seen == nil {
		g.seen = make(map[string]int)
	}
	g.stack = append(g.stack, pos)
	g.seen[repetitionKey(pos)]++
}

// Position returns the current position. Callers must treat it as read-only.
func (g *Game) Position() *chess.Position {
	return g.stack[len(g.stack)-1]
}

// LegalMoves returns all legal moves in the current position.
func (g *Game) LegalMoves() []*chess.Move {
	return g.Position().ValidMoves()
}

// Apply plays a legal move, advancing the current position.
func (g *Game) Apply(m *chess.Move) {
	g.push(g.Position().Update(m))
}

// Undo reverts the most recent Apply. Undoing past the root is a programming
// error and panics, matching the make/unmake symmetry contract.
func (g *Game) Undo() {
	if len(g.stack) <= 1 {
		panic("rules: Undo below root position")
	}
	pos := g.Position()
	g.seen[repetitionKey(pos)]--
	g.stack = g.stack[:len(g.stack)-1]
}

// Ply returns the number of applied moves still on the stack.
func (g *Game) Ply() int {
	return len(g.stack) - 1
}

// SideToMove returns the color to move in the current position.
func (g *Game) SideToMove() chess.Color {
	return g.Position().Turn()
}

// Key returns the canonical 64-bit key of the current position, covering
// piece placement, side to move, castling rights and en passant square. The
// halfmove and fullmove counters are excluded so transpositions share a key.
func (g *Game) Key() uint64 {
	return xxhash.Sum64String(repetitionKey(g.Position()))
}

// Terminal reports whether the current position ends the game, with
// checkmate attributed via SideToMove (the side to move is the mated side).
func (g *Game) Terminal() Termination {
	switch g.Position().Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	if g.seen[repetitionKey(g.Position())] >= 3 {
		return Draw
	}
	if InsufficientMaterial(g.Position().Board()) {
		return Draw
	}
	if halfMoveClock(g.Position()) >= 100 {
		return Draw
	}
	return NotTerminal
}

// Winner returns the mating side for a checkmated position.
func (g *Game) Winner() chess.Color {
	return g.SideToMove().Other()
}

// repetitionKey is the first four FEN fields: everything that matters for
// position identity, without the move counters.
func repetitionKey(pos *chess.Position) string {
	fen := pos.String()
	fields := strings.SplitN(fen, " ", 5)
	if len(fields) < 4 {
		return fen
	}
	return strings.Join(fields[:4], " ")
}

func halfMoveClock(pos *chess.Position) int {
	fields := strings.Split(pos.String(), " ")
	if len(fields) < 5 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}

// InsufficientMaterial reports the dead positions neither side can win:
// bare kings, or king and one minor piece against a bare king.
func InsufficientMaterial(b *chess.Board) bool {
	minors := 0
	for sq := chess.A1; sq <= chess.H8; sq++ {
		p := b.Piece(sq)
		if p == chess.NoPiece {
			continue
		}
		switch p.Type() {
		case chess.King:
		case chess.Knight, chess.Bishop:
			minors++
		default:
			// any pawn, rook or queen is mating material
			return false
		}
	}
	return minors <= 1
}
