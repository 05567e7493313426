// Command review analyzes finished chess games and reports how good each
// played move was. Games come from a PGN file or from a player's chess.com
// monthly archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hindsight-chess/hindsight/archive"
	"github.com/hindsight-chess/hindsight/config"
	"github.com/hindsight-chess/hindsight/review"
)

var (
	pgnPath  = flag.String("pgn", "", "path to a PGN file to review")
	user     = flag.String("user", "", "chess.com username to fetch games for")
	year     = flag.Int("year", time.Now().Year(), "archive year")
	month    = flag.Int("month", int(time.Now().Month()), "archive month")
	depth    = flag.Int("depth", 0, "search depth per position (0 = config default)")
	cfgPath  = flag.String("config", "", "optional config file")
	maxGames = flag.Int("max-games", 1, "number of archived games to review")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	rcfg := review.DefaultConfig()
	rcfg.MaxDepth = cfg.MaxDepth
	rcfg.MoveTime = time.Duration(cfg.MoveTimeMs) * time.Millisecond
	rcfg.CachePowerOf2 = cfg.CachePowerOf2
	if *depth > 0 {
		rcfg.MaxDepth = *depth
	}

	ctx := context.Background()
	pgns, err := collectPGNs(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("collecting games")
	}

	r := review.NewReviewer(rcfg)
	for i, pgn := range pgns {
		result, err := r.ReviewGame(ctx, pgn)
		if err != nil {
			log.Error().Err(err).Int("game", i+1).Msg("review failed")
			continue
		}
		printReview(result)
	}
}

func collectPGNs(ctx context.Context, cfg config.Config) ([]string, error) {
	if *pgnPath != "" {
		content, err := os.ReadFile(*pgnPath)
		if err != nil {
			return nil, err
		}
		return []string{string(content)}, nil
	}
	if *user == "" {
		return nil, fmt.Errorf("either -pgn or -user is required")
	}
	client := archive.NewClient(cfg.ArchiveBaseURL)
	games, err := client.MonthlyGames(ctx, *user, *year, *month)
	if err != nil {
		return nil, err
	}
	games = archive.GamesOf(games, *user)
	if len(games) > *maxGames {
		games = games[:*maxGames]
	}
	pgns := make([]string, len(games))
	for i, g := range games {
		pgns[i] = g.PGN
	}
	return pgns, nil
}

func printReview(result *review.GameReview) {
	fmt.Printf("%-4s %-6s %-10s %8s %8s  %s\n",
		"ply", "side", "move", "before", "after", "judgment")
	for _, mr := range result.Moves {
		fmt.Printf("%-4d %-6s %-10s %8.2f %8.2f  %s (%s)\n",
			mr.Ply, mr.Color.Name(), mr.SAN,
			float64(mr.ScoreBefore)/100, float64(mr.ScoreAfter)/100,
			mr.Judgment.Label, mr.Judgment.Explanation)
	}
	for _, s := range []*review.PlayerSummary{result.White, result.Black} {
		fmt.Printf("\n%s (%s): %d moves, accuracy %.1f%%, avg loss %.0f cp\n",
			s.Name, s.Color.Name(), s.MovesPlayed, s.Accuracy, s.AvgCentipawnLoss)
		fmt.Printf("  excellent %d, good %d, inaccuracies %d, mistakes %d, blunders %d\n",
			s.Excellent, s.Good, s.Inaccuracies, s.Mistakes, s.Blunders)
	}
}
