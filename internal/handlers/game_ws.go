// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/pitch/internal/auth"
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/jason-s-yu/pitch/internal/middleware"
	"github.com/jason-s-yu/pitch/internal/models"
	"github.com/sirupsen/logrus"
)

// Subprotocol every game client must request.
const Subprotocol = "game"

const msgPing = "ping"

var (
	errSpectator     = errors.New("spectators cannot act")
	errUnknownAction = errors.New("unknown action type")
	errMissingCard   = errors.New("action_play needs a card")
)

// GameWSHandler upgrades /game/ws/{game_id} to a websocket. A seat token
// binds the connection to a seat; without one the client only spectates.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal server error")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must use the 'game' subprotocol")
			return
		}

		gameID, ok := pathGameID(r, "/game/ws/")
		if !ok {
			c.Close(InvalidGameIDError, "invalid game id")
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			c.Close(InvalidGameIDError, "game not found")
			return
		}

		seat := -1
		if token := requestToken(r); token != "" {
			tokenGame, tokenSeat, err := auth.AuthenticateSeat(token)
			if err != nil {
				logger.WithError(err).WithField("game_id", gameID).Warn("seat token rejected")
				c.Close(InvalidSeatTokenError, "invalid seat token")
				return
			}
			if tokenGame != gameID {
				c.Close(SeatMismatchError, "token belongs to another game")
				return
			}
			seat = tokenSeat
		}

		log := logger.WithFields(logrus.Fields{
			"game_id":    gameID,
			"seat":       seat,
			"request_id": middleware.RequestID(r.Context()),
		})
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		h := gs.hubs.hubFor(gameID, logger)
		cl := newClient(c, seat)
		h.add(cl)
		defer h.drop(cl)
		go cl.writeLoop(log)

		// registered first so no event can fall between the snapshot and the stream
		cl.enqueue(game.GameEvent{
			Type:       game.EventPrivateSyncState,
			Generation: g.Generation(),
			State:      snapshotPtr(g.SnapshotFor(seat)),
		})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			select {
			case <-cl.done:
				cancel()
			case <-ctx.Done():
			}
		}()

		err = readGameMessages(ctx, c, g, cl, log)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

func snapshotPtr(s game.Snapshot) *game.Snapshot { return &s }

// enqueue marshals v onto the client's ordered send queue.
func (c *client) enqueue(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket message")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

// readGameMessages routes client actions to the game until the connection
// closes. A rejected action is answered privately and changes nothing.
func readGameMessages(ctx context.Context, c *websocket.Conn, g *game.PitchGame, cl *client, log *logrus.Entry) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.WithField("msg_type", msgType).Warn("ignoring non-text message")
			continue
		}

		var msg models.GameAction
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("invalid JSON from client")
			cl.enqueue(map[string]interface{}{"type": "error", "message": "Invalid JSON format."})
			continue
		}
		if msg.ActionType == msgPing {
			log.Trace("ping")
			cl.enqueue(map[string]string{"type": "pong"})
			continue
		}

		log.WithField("action", msg.ActionType).Debug("client action")
		if err := routeAction(g, cl.seat, msg); err != nil {
			log.WithError(err).WithField("action", msg.ActionType).Debug("action rejected")
			cl.enqueue(rejection(g, cl.seat, msg, err))
		}
	}
}

// routeAction applies one client action for seat.
func routeAction(g *game.PitchGame, seat int, msg models.GameAction) error {
	if seat < 0 {
		return errSpectator
	}
	switch msg.ActionType {
	case models.ActionBid:
		return g.SubmitBid(seat, msg.Amount)
	case models.ActionPlay:
		if msg.Card == nil {
			return errMissingCard
		}
		return g.SubmitPlay(seat, *msg.Card)
	case models.ActionNewGame:
		return g.NewGame()
	case models.ActionReset:
		g.Reset()
		return nil
	case models.ActionAutoPlay:
		g.SetAutoPlay(msg.Enabled)
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, msg.ActionType)
	}
}

func rejection(g *game.PitchGame, seat int, msg models.GameAction, err error) game.GameEvent {
	reason := game.RejectionReason(err)
	switch {
	case errors.Is(err, errSpectator):
		reason = "spectator"
	case errors.Is(err, errUnknownAction):
		reason = "unknown_action"
	case errors.Is(err, errMissingCard):
		reason = "missing_card"
	}
	return game.GameEvent{
		Type:       game.EventPrivateRejected,
		Generation: g.Generation(),
		Seat:       &seat,
		Payload: map[string]interface{}{
			"action": msg.ActionType,
			"reason": reason,
			"error":  err.Error(),
		},
		State: snapshotPtr(g.SnapshotFor(seat)),
	}
}
