package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/notifications"
	"github.com/charlesng35/smokefree/pkg/logger"
)

// StreamNotifications carries notification store events.
const StreamNotifications = "notifications"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	defaultBufferSize = 64
)

// Message is a JSON frame delivered to connected clients.
type Message struct {
	Stream string `json:"stream"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

type controlMessage struct {
	Action string `json:"action"`
}

// Hub fans notification events out to every connection of the owning user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a Hub that accepts same-origin and loopback origins.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		log: logger.WithModule("realtime"),
	}
}

// Serve upgrades the request and streams events for userID until the client disconnects.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	c := &client{
		hub:    h,
		socket: socket,
		userID: userID,
		send:   make(chan Message, defaultBufferSize),
	}
	h.register(c)

	go c.writeLoop()
	c.readLoop()
}

// Publish delivers message to every connection of userID.
func (h *Hub) Publish(userID string, message Message) {
	if userID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(message)
	}
}

// NotificationObserver adapts the hub to a notifications.Store observer.
func (h *Hub) NotificationObserver() notifications.Observer {
	return func(userID string, event notifications.Event, record notifications.Record) {
		msg := Message{Stream: StreamNotifications, Event: string(event)}
		if record.ID != "" {
			msg.Data = record
		}
		h.Publish(userID, msg)
	}
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

type client struct {
	hub    *Hub
	socket *websocket.Conn
	userID string

	mu     sync.Mutex
	send   chan Message
	closed bool
}

func (c *client) enqueue(message Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- message:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.hub.log.Warn("dropping slow realtime client", zap.String("user_id", c.userID))
		c.close()
	}
}

func (c *client) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("unexpected websocket close", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(ctrl.Action), "ping") {
			c.enqueue(Message{Event: "pong"})
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.hub.unregister(c)
	_ = c.socket.Close()
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := parsed.Hostname()
	if originHost == hostname(r.Host) {
		return true
	}
	if ip := net.ParseIP(originHost); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(originHost, "localhost")
}

func hostname(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
