package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/auth"
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *GameServer) {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour))
	logger, _ := test.NewNullLogger()

	gs := NewGameServer(logger, game.DefaultHouseRules())
	mux := http.NewServeMux()
	mux.Handle("/game/create", CreateGameHandler(gs))
	mux.Handle("/game/state/", GameStateHandler(gs))
	mux.Handle("/game/delete/", DeleteGameHandler(gs))
	mux.Handle("/game/ws/", GameWSHandler(logger, gs))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		for _, id := range gameIDs(gs) {
			gs.RemoveGame(id)
		}
	})
	return srv, gs
}

func gameIDs(gs *GameServer) []uuid.UUID {
	var ids []uuid.UUID
	gs.hubs.mu.Lock()
	for id := range gs.hubs.hubs {
		ids = append(ids, id)
	}
	gs.hubs.mu.Unlock()
	return ids
}

func createGame(t *testing.T, srv *httptest.Server, body string) CreateGameResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/game/create", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out CreateGameResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func dial(t *testing.T, srv *httptest.Server, gameID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws/" + gameID.String()
	if token != "" {
		url += "?token=" + token
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func readEvent(t *testing.T, ctx context.Context, c *websocket.Conn) game.GameEvent {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var ev game.GameEvent
	require.NoError(t, json.Unmarshal(data, &ev), string(data))
	return ev
}

func send(t *testing.T, ctx context.Context, c *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

func TestCreateGameIssuesSeatTokens(t *testing.T) {
	srv, gs := newTestServer(t)
	out := createGame(t, srv, `{"humanSeats": [0, 2], "winningScore": 7}`)

	require.Len(t, out.Seats, 2)
	assert.Equal(t, 7, out.Rules.WinningScore)
	for _, grant := range out.Seats {
		id, seat, err := auth.AuthenticateSeat(grant.Token)
		require.NoError(t, err)
		assert.Equal(t, out.GameID, id)
		assert.Equal(t, grant.Seat, seat)
	}

	g, ok := gs.GameStore.GetGame(out.GameID)
	require.True(t, ok)
	assert.Equal(t, game.PhaseBidding, g.Snapshot().Phase)
}

func TestCreateGameRejectsBadRules(t *testing.T) {
	srv, gs := newTestServer(t)
	for _, body := range []string{`{"handSize": 40}`, `not json`} {
		resp, err := http.Post(srv.URL+"/game/create", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Zero(t, gs.GameStore.Len())
}

func TestGameStateHidesOtherHands(t *testing.T) {
	srv, _ := newTestServer(t)
	out := createGame(t, srv, `{"humanSeats": [0]}`)

	get := func(token string) (int, game.Snapshot) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/game/state/"+out.GameID.String(), nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var s game.Snapshot
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
		}
		return resp.StatusCode, s
	}

	code, s := get(out.Seats[0].Token)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, s.Seats[0].Hand, game.DefaultHandSize)
	for seat := 1; seat < game.NumSeats; seat++ {
		assert.Nil(t, s.Seats[seat].Hand)
		assert.Equal(t, game.DefaultHandSize, s.Seats[seat].HandSize)
	}

	code, s = get("")
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, s.Seats[0].Hand, "spectators see no hands")

	code, _ = get("garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	other, err := auth.CreateSeatToken(uuid.New(), 0)
	require.NoError(t, err)
	code, _ = get(other)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestDeleteGame(t *testing.T) {
	srv, gs := newTestServer(t)
	out := createGame(t, srv, `{}`)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/game/delete/"+out.GameID.String(), nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: seatTokenCookie, Value: out.Seats[0].Token})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, ok := gs.GameStore.GetGame(out.GameID)
	assert.False(t, ok)
	_, ok = gs.hubs.get(out.GameID)
	assert.False(t, ok, "hub dropped with the game")
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)
	out := createGame(t, srv, `{}`)

	c := dial(t, srv, out.GameID, "not-a-token")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(InvalidSeatTokenError), websocket.CloseStatus(err))

	c = dial(t, srv, uuid.New(), "")
	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(InvalidGameIDError), websocket.CloseStatus(err))
}

func TestWebSocketPlaysARound(t *testing.T) {
	srv, _ := newTestServer(t)
	out := createGame(t, srv, `{"humanSeats": [0]}`)
	c := dial(t, srv, out.GameID, out.Seats[0].Token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := readEvent(t, ctx, c)
	require.Equal(t, game.EventPrivateSyncState, first.Type)
	require.NotNil(t, first.State)
	assert.Len(t, first.State.Seats[0].Hand, game.DefaultHandSize)
	assert.Nil(t, first.State.Seats[1].Hand)

	act := func(s *game.Snapshot) {
		if s == nil || s.CurrentPlayer != 0 {
			return
		}
		switch s.Phase {
		case game.PhaseBidding:
			for i, ok := range s.LegalBids {
				if ok {
					send(t, ctx, c, map[string]interface{}{"type": "action_bid", "amount": game.BidActions[i]})
					return
				}
			}
		case game.PhasePlaying:
			if len(s.LegalMoves) > 0 {
				send(t, ctx, c, map[string]interface{}{"type": "action_play", "card": s.LegalMoves[0].String()})
			}
		}
	}

	act(first.State)
	for {
		ev := readEvent(t, ctx, c)
		if ev.Type == game.EventRoundSettled {
			require.NotNil(t, ev.State)
			require.NotNil(t, ev.State.LastRoundResult)
			assert.Equal(t, ev.State.Scores, ev.State.LastRoundResult.Scores)
			return
		}
		if ev.State != nil {
			for seat := 1; seat < game.NumSeats; seat++ {
				require.Nil(t, ev.State.Seats[seat].Hand, "seat %d leaked in %s", seat, ev.Type)
			}
		}
		if ev.Type == game.EventPrivateRejected {
			continue
		}
		act(ev.State)
	}
}

func TestWebSocketRejectsOutOfTurn(t *testing.T) {
	srv, _ := newTestServer(t)
	out := createGame(t, srv, `{"humanSeats": [0]}`)
	c := dial(t, srv, out.GameID, out.Seats[0].Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	readEvent(t, ctx, c)

	send(t, ctx, c, map[string]interface{}{"type": "action_teleport"})
	for {
		ev := readEvent(t, ctx, c)
		if ev.Type != game.EventPrivateRejected {
			continue
		}
		assert.Equal(t, "unknown_action", ev.Payload["reason"])
		assert.Equal(t, "action_teleport", ev.Payload["action"])
		break
	}

	send(t, ctx, c, map[string]string{"type": "ping"})
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		if strings.Contains(string(data), `"pong"`) {
			break
		}
	}
}

func TestSpectatorCannotAct(t *testing.T) {
	srv, _ := newTestServer(t)
	out := createGame(t, srv, `{"humanSeats": [0]}`)
	c := dial(t, srv, out.GameID, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	first := readEvent(t, ctx, c)
	require.Equal(t, game.EventPrivateSyncState, first.Type)
	for _, st := range first.State.Seats {
		assert.Nil(t, st.Hand)
	}

	send(t, ctx, c, map[string]interface{}{"type": "action_reset"})
	for {
		ev := readEvent(t, ctx, c)
		if ev.Type == game.EventPrivateRejected {
			assert.Equal(t, "spectator", ev.Payload["reason"])
			return
		}
		require.NotEqual(t, game.EventGameReset, ev.Type)
	}
}
