// Package websocket pushes record change events to connected clients so
// bound tables and summaries can re-fetch.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pcbaerp/internal/store"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// sendBuffer is how many events a client may fall behind before it is
	// dropped.
	sendBuffer = 64
)

// Event is the payload broadcast to all connected WebSocket clients.
type Event struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	ID         string `json:"id,omitempty"`
	PrevID     string `json:"prev_id,omitempty"`
	Action     string `json:"action"`
}

// client is one connection. Only its write pump writes to conn.
type client struct {
	conn *ws.Conn
	send chan []byte
}

func newClient(conn *ws.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer)}
}

// Hub maintains connected WebSocket clients and broadcasts events.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	// OnCount, when set, is called with the client count after each
	// connect or disconnect.
	OnCount func(n int)
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, clients: make(map[*client]struct{})}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) int {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.OnCount != nil {
		h.OnCount(n)
	}
	return n
}

// unregister removes c and closes its send channel, which stops its write
// pump. Calling it again is a no-op.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if present && h.OnCount != nil {
		h.OnCount(n)
	}
}

// Broadcast queues an event for every connected client without blocking.
// Clients whose queue is full are dropped.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal event", zap.Error(err))
		return
	}
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Debug("dropping slow client")
		h.unregister(c)
	}
}

// writePump drains c.send to the connection and pings on a ticker. It
// returns when the send channel is closed or a write fails, closing conn so
// the read loop ends too.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(ws.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, msg); err != nil {
				h.log.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// ObserveChange is a store.Observer that broadcasts every mutation, e.g.
// {"type":"work_orders_updated","collection":"work_orders","id":"WO-24001","action":"update"}.
func (h *Hub) ObserveChange(_ context.Context, c store.Change) {
	h.Broadcast(Event{
		Type:       c.Collection + "_" + pastTense(string(c.Action)),
		Collection: c.Collection,
		ID:         c.ID,
		PrevID:     c.PrevID,
		Action:     string(c.Action),
	})
}

func pastTense(action string) string {
	if n := len(action); n > 0 && action[n-1] == 'e' {
		return action + "d"
	}
	return action + "ed"
}

// Upgrader is the default WebSocket upgrader.
var Upgrader = ws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the connection and keeps it alive with pings until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade error", zap.Error(err))
		return
	}

	c := newClient(conn)
	n := h.register(c)
	h.log.Info("client connected", zap.Int("clients", n))

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.writePump(c)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	<-pumpDone
	h.log.Info("client disconnected")
}
