package mockserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/realtime"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	stream string
	groups map[string]bool
}

func newClient(conn *websocket.Conn, userID int64, stream string) *client {
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		stream: stream,
		groups: make(map[string]bool),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// hub fans events out to connected stream clients.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	logger  *zap.Logger
}

func newHub(l *zap.Logger) *hub {
	return &hub{clients: make(map[*client]bool), logger: l}
}

func (h *hub) add(conn *websocket.Conn, userID int64, stream string) *client {
	c := newClient(conn, userID, stream)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) join(c *client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.groups[group] = true
}

// publish sends ev to every client match accepts. Clients whose queue is full
// are dropped.
func (h *hub) publish(ev realtime.Event, match func(*client) bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("stream client too slow, disconnecting", zap.Int64("user_id", c.userID))
		h.remove(c)
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
