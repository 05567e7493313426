// Command shell is an interactive front end to the analysis engine: load a
// position, ask for the best move, judge a move you are considering.
package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hindsight-chess/hindsight/analyzer"
	"github.com/hindsight-chess/hindsight/config"
	"github.com/hindsight-chess/hindsight/eval"
	"github.com/hindsight-chess/hindsight/rules"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "position <fen> - set the position to analyze (\"start\" for the initial position)\n")
	io.WriteString(w, "analyze [depth] [ms] - find the best move within the given budget\n")
	io.WriteString(w, "moves - list the legal moves of the current position\n")
	io.WriteString(w, "newgame - clear the position cache before an unrelated game\n")
	io.WriteString(w, "exit - quit\n")
}

type shell struct {
	cfg       config.Config
	svc       *analyzer.Service
	fen       string
	prevScore *eval.Score
}

func (s *shell) setPosition(fen string) {
	if fen == "start" {
		fen = startFEN
	}
	if _, err := rules.NewGameFromFEN(fen); err != nil {
		fmt.Println(err)
		return
	}
	s.fen = fen
	s.prevScore = nil
	fmt.Println("position set")
}

func (s *shell) analyze(args []string) {
	depth := s.cfg.MaxDepth
	budget := time.Duration(s.cfg.MoveTimeMs) * time.Millisecond
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}
	if len(args) > 1 {
		if ms, err := strconv.Atoi(args[1]); err == nil {
			budget = time.Duration(ms) * time.Millisecond
		}
	}

	respCh, err := s.svc.Analyze(context.Background(), analyzer.Request{
		FEN:           s.fen,
		MaxDepth:      depth,
		MaxTime:       budget,
		PreviousScore: s.prevScore,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	resp := <-respCh
	if resp.Err != nil {
		fmt.Println(resp.Err)
		return
	}
	res := resp.Result
	if res.BestMove == nil {
		fmt.Printf("no legal moves; terminal position, score %.2f\n",
			float64(resp.Score)/100)
		return
	}
	fmt.Printf("best %s  score %.2f  depth %d  nodes %d  in %s\n",
		res.BestMove.String(), float64(resp.Score)/100, res.Depth,
		res.Nodes, res.Elapsed.Round(time.Millisecond))
	if resp.Judgment != nil {
		fmt.Printf("last move: %s (%s)\n", resp.Judgment.Label, resp.Judgment.Explanation)
	}
	score := resp.Score
	s.prevScore = &score
}

func (s *shell) listMoves() {
	g, err := rules.NewGameFromFEN(s.fen)
	if err != nil {
		fmt.Println(err)
		return
	}
	moves := g.LegalMoves()
	if len(moves) == 0 {
		fmt.Printf("no legal moves (%s)\n", g.Terminal())
		return
	}
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.String()
	}
	fmt.Println(strings.Join(parts, " "))
}

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:              "hindsight> ",
		HistoryFile:         "/tmp/hindsight_readline.tmp",
		EOFPrompt:           "exit",
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()

	sh := &shell{
		cfg: cfg,
		svc: analyzer.NewService(cfg.CachePowerOf2),
		fen: startFEN,
	}

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "position":
			if len(fields) < 2 {
				fmt.Println("position requires a FEN")
				continue
			}
			sh.setPosition(strings.Join(fields[1:], " "))
		case "analyze":
			sh.analyze(fields[1:])
		case "moves":
			sh.listMoves()
		case "newgame":
			sh.svc.NewGame()
			fmt.Println("position cache cleared")
		case "help":
			usage(l.Stderr())
		case "exit", "quit":
			return
		default:
			usage(l.Stderr())
		}
	}
}
