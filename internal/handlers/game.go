// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/auth"
	"github.com/jason-s-yu/pitch/internal/game"
)

// SeatGrant pairs a human seat with the token that lets a client act for it.
type SeatGrant struct {
	Seat  int    `json:"seat"`
	Token string `json:"token"`
}

// CreateGameResponse is returned by /game/create.
type CreateGameResponse struct {
	GameID uuid.UUID       `json:"game_id"`
	Rules  game.HouseRules `json:"rules"`
	Seats  []SeatGrant     `json:"seats"`
}

// CreateGameHandler creates and deals a new game. The optional JSON body
// overrides the server's default house rules.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rules := gs.Rules
		var raw map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&raw)
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		default:
			rules, err = game.ParseRules(raw, gs.Rules)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		g := gs.CreateGame(rules)
		resp := CreateGameResponse{GameID: g.ID, Rules: rules, Seats: []SeatGrant{}}
		for _, seat := range rules.HumanSeats {
			token, err := auth.CreateSeatToken(g.ID, seat)
			if err != nil {
				gs.Logger.WithError(err).Error("failed to sign seat token")
				gs.RemoveGame(g.ID)
				http.Error(w, "could not issue seat token", http.StatusInternalServerError)
				return
			}
			resp.Seats = append(resp.Seats, SeatGrant{Seat: seat, Token: token})
		}

		if err := g.NewGame(); err != nil {
			gs.RemoveGame(g.ID)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// GameStateHandler returns /game/state/{id} as seen by the token's seat.
// Without a token the caller gets the spectator view.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := pathGameID(r, "/game/state/")
		if !ok {
			http.Error(w, "missing or invalid game id", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		seat := -1
		if token := requestToken(r); token != "" {
			tokenGame, tokenSeat, err := auth.AuthenticateSeat(token)
			if err != nil {
				http.Error(w, "invalid seat token", http.StatusUnauthorized)
				return
			}
			if tokenGame != gameID {
				http.Error(w, "token belongs to another game", http.StatusForbidden)
				return
			}
			seat = tokenSeat
		}
		writeJSON(w, http.StatusOK, g.SnapshotFor(seat))
	}
}

// DeleteGameHandler ends /game/delete/{id}. Any seat of the game may do it.
func DeleteGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gameID, ok := pathGameID(r, "/game/delete/")
		if !ok {
			http.Error(w, "missing or invalid game id", http.StatusBadRequest)
			return
		}
		tokenGame, _, err := auth.AuthenticateSeat(requestToken(r))
		if err != nil || tokenGame != gameID {
			http.Error(w, "invalid seat token", http.StatusUnauthorized)
			return
		}
		if _, ok := gs.GameStore.GetGame(gameID); !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		gs.RemoveGame(gameID)
		w.WriteHeader(http.StatusNoContent)
	}
}
