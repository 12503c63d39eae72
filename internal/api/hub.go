package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/tilewar/internal/engine"
)

const maxStreamClients = 32

// Frame is one websocket message.
type Frame struct {
	Type string `json:"type"` // "status" or "event"
	Data any    `json:"data"`
}

// Client is one websocket connection.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans status frames and match events out to websocket clients.
type Hub struct {
	Interval time.Duration // Between status frames

	sim   *engine.Simulation
	clock *engine.Clock

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      int32

	upgrader websocket.Upgrader
}

// NewHub creates a hub for sim. Call Run before serving connections.
func NewHub(sim *engine.Simulation, clock *engine.Clock) *Hub {
	return &Hub{
		Interval:   time.Second,
		sim:        sim,
		clock:      clock,
		clients:    map[*Client]bool{},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	subID, events := h.sim.Subscribe()
	defer h.sim.Unsubscribe(subID)
	defer close(h.done)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.deliver(c, h.statusFrame())
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case <-ticker.C:
			h.broadcast(h.statusFrame())
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			h.broadcast(encodeFrame(Frame{Type: "event", Data: e}))
		}
	}
}

func (h *Hub) statusFrame() []byte {
	return encodeFrame(Frame{Type: "status", Data: buildStatus(h.sim.Snapshot(), h.clock)})
}

func (h *Hub) broadcast(msg []byte) {
	for c := range h.clients {
		h.deliver(c, msg)
	}
}

// deliver queues msg for c, dropping clients that cannot keep up.
func (h *Hub) deliver(c *Client, msg []byte) {
	if msg == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func encodeFrame(f Frame) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		slog.Error("encode frame", "type", f.Type, "error", err)
		return nil
	}
	return b
}

// ServeWS upgrades GET /api/v1/stream to a websocket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&h.count, 1) > maxStreamClients {
		atomic.AddInt32(&h.count, -1)
		http.Error(w, "too many stream clients", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&h.count, -1)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	slog.Info("stream client connected", "client", c.id)

	go c.writer()
	c.reader()

	select {
	case h.unregister <- c:
	case <-h.done:
	}
	conn.Close()
	slog.Info("stream client disconnected", "client", c.id)
}

// reader discards inbound messages until the connection fails.
func (c *Client) reader() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writer() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
