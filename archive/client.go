// Package archive retrieves a player's finished games from the chess.com
// public archive. It is an external data source for the review tooling; the
// engine core never depends on it.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Player identifies one side of an archived game.
type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Game is one archived game.
type Game struct {
	URL       string `json:"url"`
	PGN       string `json:"pgn"`
	TimeClass string `json:"time_class"`
	EndTime   int64  `json:"end_time"`
	White     Player `json:"white"`
	Black     Player `json:"black"`
}

type monthlyGamesResponse struct {
	Games []Game `json:"games"`
}

// Client fetches game archives over HTTP with bounded retries.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a client for the given archive base URL (for chess.com,
// "https://api.chess.com/pub").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// MonthlyGames lists every game the player finished in the given month.
func (c *Client) MonthlyGames(ctx context.Context, username string, year, month int) ([]Game, error) {
	url := fmt.Sprintf("%s/player/%s/games/%d/%02d", c.baseURL, username, year, month)

	var payload monthlyGamesResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.hc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("no archive for %s %d/%02d", username, year, month))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("archive returned %s", resp.Status)
			}
			return json.NewDecoder(resp.Body).Decode(&payload)
		},
		retry.Attempts(3),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Uint("attempt", n).Err(err).Str("url", url).
				Msg("archive fetch retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	log.Debug().Int("games", len(payload.Games)).Str("user", username).
		Msg("fetched monthly archive")
	return payload.Games, nil
}

// GamesOf filters games to those where the given user held either color.
func GamesOf(games []Game, username string) []Game {
	return lo.Filter(games, func(g Game, _ int) bool {
		return g.White.Username == username || g.Black.Username == username
	})
}
