package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/gravitysim/gravity/internal/channel"
	"github.com/gravitysim/gravity/internal/metrics"
	"github.com/gravitysim/gravity/internal/simulation"
)

const (
	clientSendSize = 256
	writeWait      = 10 * time.Second
)

var upgrader = ws.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one stream subscriber with its own writer goroutine.
type client struct {
	conn *ws.Conn
	send chan []byte
}

// hub fans simulator events out to stream clients. A client whose buffer
// is full misses events rather than stalling the others.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	log     *slog.Logger
	metrics *metrics.Collector
}

func newHub(log *slog.Logger, m *metrics.Collector) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		log:     log,
		metrics: m,
	}
}

func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.StreamConnected()
	}
	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.metrics != nil {
		h.metrics.StreamDisconnected()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("Stream client slow, dropping event")
		}
	}
}

// closeAll disconnects every client and refuses new ones.
func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *hub) run(ctx context.Context, events channel.Receiver[simulation.Event]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events.Receive():
			if !ok {
				h.closeAll()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("Failed to encode event", "kind", ev.Kind, "error", err)
				continue
			}
			h.broadcast(data)
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	if !s.hub.add(c) {
		_ = conn.Close()
		return
	}
	s.log.Debug("Stream client connected", "remote", r.RemoteAddr)

	go writeLoop(c)
	readLoop(c)
	s.hub.remove(c)
	s.log.Debug("Stream client disconnected", "remote", r.RemoteAddr)
}

// writeLoop sends queued events until the hub closes the client.
func writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readLoop discards client messages and returns when the peer goes away.
func readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
