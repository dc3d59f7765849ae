// internal/handlers/game_server.go
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/database"
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/policy"
	"github.com/sirupsen/logrus"
)

// archiveTimeout bounds a single archive write.
const archiveTimeout = 5 * time.Second

// GameServer holds the live games, their websocket hubs and the optional archive.
type GameServer struct {
	GameStore *game.GameStore
	Logger    *logrus.Logger
	Rules     game.HouseRules

	// NewProvider builds the policy for a fresh game. nil means random bots.
	NewProvider func() policy.Provider

	// Archive is nil when no database is configured.
	Archive *database.Archive

	hubs *hubRegistry
}

func NewGameServer(logger *logrus.Logger, rules game.HouseRules) *GameServer {
	return &GameServer{
		GameStore: game.NewGameStore(),
		Logger:    logger,
		Rules:     rules,
		hubs:      newHubRegistry(),
	}
}

// CreateGame builds a game with the given rules, wires its broadcast and
// archive hooks, and adds it to the store. The game is not started.
func (gs *GameServer) CreateGame(rules game.HouseRules) *game.PitchGame {
	var provider policy.Provider
	if gs.NewProvider != nil {
		provider = gs.NewProvider()
	}
	g := game.NewPitchGame(rules, provider)
	g.SetLogger(gs.Logger)

	h := gs.hubs.hubFor(g.ID, gs.Logger)
	g.BroadcastFn = h.broadcast

	if gs.Archive != nil {
		gs.wireArchive(g)
	}

	gs.GameStore.AddGame(g)
	gs.Logger.WithField("game_id", g.ID).Info("game created")
	return g
}

// RemoveGame closes a game and drops every connection watching it.
func (gs *GameServer) RemoveGame(id uuid.UUID) {
	gs.GameStore.DeleteGame(id)
	gs.hubs.remove(id)
}

// wireArchive persists settled rounds and final scores. Hooks run under the
// game lock, so the writes happen on their own goroutines.
func (gs *GameServer) wireArchive(g *game.PitchGame) {
	archive := gs.Archive
	log := gs.Logger.WithField("game_id", g.ID)

	g.OnRoundSettled = func(gameID uuid.UUID, roundNumber int, res game.RoundResult) {
		rec := database.RoundRecord{
			GameID:      gameID,
			RoundNumber: roundNumber,
			Dealer:      res.Dealer,
			BidWinner:   res.BidWinner,
			BidAmount:   res.BidAmount,
			Stuck:       res.Stuck,
			BidMade:     res.BidMade,
			Delta:       res.ScoreDelta,
			Scores:      res.Scores,
			Detail:      res,
		}
		if res.Trump != nil {
			rec.Trump = res.Trump.String()
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
			defer cancel()
			if err := archive.RecordRound(ctx, rec); err != nil {
				log.WithError(err).WithField("round", roundNumber).Error("failed to archive round")
			}
		}()
	}

	g.OnGameEnd = func(gameID uuid.UUID, winner int, scores game.TeamScores) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
			defer cancel()
			if err := archive.RecordGameEnd(ctx, gameID, winner, scores); err != nil {
				log.WithError(err).Error("failed to archive game end")
			}
		}()
	}
}
