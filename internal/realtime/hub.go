package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Message is the envelope pushed to every connected client
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sentAt"`
}

// Hub fans order events out to connected staff screens. A client that cannot
// keep up is disconnected instead of blocking the publisher.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Entry

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// NewHub creates an empty hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger.WithField("component", "realtime"),
		clients: make(map[*client]struct{}),
	}
}

// SetCheckOrigin overrides the upgrader's origin policy
func (h *Hub) SetCheckOrigin(fn func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// AllowOrigins accepts requests without an Origin header and those whose
// Origin exactly matches one of origins
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// ServeWS upgrades the request and registers the connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
	return nil
}

// Publish sends a message to every client
func (h *Hub) Publish(eventType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: eventType, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.logger.WithError(err).WithField("type", eventType).Error("failed to marshal event")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("client buffer full, disconnecting")
		h.remove(c)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump drains client frames so pongs and close frames are processed
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("websocket closed")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
