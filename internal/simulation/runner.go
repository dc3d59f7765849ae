// Package simulation plays whole bot-only games for policy evaluation.
package simulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/policy"
)

// DefaultMaxRounds caps a game that would otherwise seesaw forever.
const DefaultMaxRounds = 200

// GameResult is one finished (or capped) game.
type GameResult struct {
	SimID  int
	Seed   int64
	Winner int // team, -1 when capped
	Scores game.TeamScores
	Rounds []game.RoundResult
	Capped bool
}

// RunGame plays a game between four bot seats. providers[t] drives both seats
// of team t; a nil entry plays uniformly random legal moves. The game stops
// after maxRounds rounds if nobody has won.
func RunGame(ctx context.Context, rules game.HouseRules, providers [game.NumTeams]policy.Provider, seed int64, maxRounds int) (GameResult, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	rules.HumanSeats = nil
	rules.ThinkDelayMs = 0

	g := game.NewPitchGame(rules, nil)
	g.SetSeed(seed)
	for team, p := range providers {
		if err := g.SetTeamPolicy(team, p); err != nil {
			return GameResult{}, err
		}
	}

	res := GameResult{Seed: seed, Winner: -1}
	done := make(chan struct{})
	finished := false

	// hooks run under the game lock; res is read only after Close
	g.OnRoundSettled = func(_ uuid.UUID, _ int, r game.RoundResult) {
		if finished {
			return
		}
		res.Rounds = append(res.Rounds, r)
		res.Scores = r.Scores
		if len(res.Rounds) < maxRounds {
			return
		}
		if over, _ := game.GameOver(r.Scores, rules.WinningScore, r.BiddingTeam); !over {
			res.Capped = true
			finished = true
			close(done)
		}
	}
	g.OnGameEnd = func(_ uuid.UUID, winner int, scores game.TeamScores) {
		if finished {
			return
		}
		res.Winner = winner
		res.Scores = scores
		finished = true
		close(done)
	}

	if err := g.NewGame(); err != nil {
		g.Close()
		return res, fmt.Errorf("start game: %w", err)
	}

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	g.Close()
	g.WaitIdle()
	return res, err
}
