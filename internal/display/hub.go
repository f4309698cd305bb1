package display

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/gridbot/internal/httputil"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/protocol"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub pushes snapshots to websocket clients. New clients immediately
// receive the latest snapshot. Clients that cannot keep up skip messages.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan protocol.StatusMessage
	latest  *protocol.StatusMessage
	closed  bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan protocol.StatusMessage)}
}

// Publish implements Publisher.
func (h *Hub) Publish(_ context.Context, msg protocol.StatusMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = &msg
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Latest returns the most recent snapshot, if any.
func (h *Hub) Latest() (protocol.StatusMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return protocol.StatusMessage{}, false
	}
	return *h.latest, true
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams snapshots until the client
// disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("display: websocket upgrade failed: %v", err)
		return
	}

	ch := make(chan protocol.StatusMessage, clientBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = ch
	if h.latest != nil {
		ch <- *h.latest
	}
	h.mu.Unlock()
	monitoring.Logf("display: client %s connected", r.RemoteAddr)

	// The read loop only exists to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer h.remove(conn)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				monitoring.Logf("display: write to %s failed: %v", r.RemoteAddr, err)
				return
			}
		case <-gone:
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	conn.Close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, ch := range h.clients {
		delete(h.clients, conn)
		close(ch)
	}
}

// StateHandler serves the latest snapshot as JSON.
func (h *Hub) StateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		msg, ok := h.Latest()
		if !ok {
			httputil.NotFound(w, "no snapshot yet")
			return
		}
		httputil.WriteJSONOK(w, msg)
	}
}
