// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pitch/internal/game"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 64
)

// client is one websocket connection bound to a seat. Seat is -1 for spectators.
type client struct {
	conn *websocket.Conn
	seat int
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, seat int) *client {
	return &client{
		conn: conn,
		seat: seat,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// writeLoop drains the send queue in order until the client stops.
func (c *client) writeLoop(log *logrus.Entry) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.WithError(err).WithField("seat", c.seat).Warn("websocket write failed")
				c.stop()
				return
			}
		}
	}
}

// hub fans game events out to the connections watching one game.
type hub struct {
	gameID  uuid.UUID
	log     *logrus.Entry
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(gameID uuid.UUID, logger *logrus.Logger) *hub {
	return &hub{
		gameID:  gameID,
		log:     logger.WithField("game_id", gameID),
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

// broadcast is installed as the game's BroadcastFn. It runs with the game lock
// held, so it only queues bytes and never touches the game.
func (h *hub) broadcast(ev game.GameEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		out := ev
		if ev.State != nil {
			view := ev.State.ForSeat(c.seat)
			out.State = &view
		}
		data, err := json.Marshal(out)
		if err != nil {
			h.log.WithError(err).WithField("type", ev.Type).Error("failed to marshal event")
			continue
		}
		select {
		case c.send <- data:
		default:
			// slow reader; cut it loose rather than stall the game
			h.log.WithField("seat", c.seat).Warn("send queue full, dropping connection")
			delete(h.clients, c)
			c.stop()
		}
	}
}

// closeAll stops every client writer.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.stop()
		delete(h.clients, c)
	}
}

type hubRegistry struct {
	mu   sync.Mutex
	hubs map[uuid.UUID]*hub
}

func newHubRegistry() *hubRegistry {
	return &hubRegistry{hubs: make(map[uuid.UUID]*hub)}
}

func (r *hubRegistry) hubFor(id uuid.UUID, logger *logrus.Logger) *hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[id]
	if !ok {
		h = newHub(id, logger)
		r.hubs[id] = h
	}
	return h
}

func (r *hubRegistry) get(id uuid.UUID) (*hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[id]
	return h, ok
}

func (r *hubRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	h, ok := r.hubs[id]
	delete(r.hubs, id)
	r.mu.Unlock()
	if ok {
		h.closeAll()
	}
}
