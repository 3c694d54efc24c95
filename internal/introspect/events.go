package introspect

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/declkit/declkit/runtime/mirror"
)

// EventHub manages WebSocket connections and streams registry events
// to every connected client.
type EventHub struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *EventMessage
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger

	closeOnce sync.Once
}

// EventMessage is the wire form of a registry event.
type EventMessage struct {
	Op        string `json:"op"`              // "decorate", "member.set", ...
	Class     string `json:"class,omitempty"` // qualified class name
	Key       string `json:"key,omitempty"`   // member name or parameter index
	Timestamp int64  `json:"timestamp"`       // Unix timestamp
}

// NewEventHub creates a hub and starts its connection loop.
func NewEventHub(logger *zap.Logger) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &EventHub{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *EventMessage, 256),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Allow no origin (same-origin)
					return true
				}
				// Allow localhost only for security
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go h.run()

	return h
}

// AttachStore forwards registry events from the store to connected
// clients. The returned cancel function detaches the subscription.
func (h *EventHub) AttachStore(s *mirror.Store) func() {
	return s.Subscribe(func(e mirror.Event) {
		msg := &EventMessage{
			Op:        string(e.Op),
			Class:     e.Class,
			Key:       e.Key,
			Timestamp: time.Now().Unix(),
		}
		// Never block a registration on slow clients.
		select {
		case h.broadcast <- msg:
		default:
			h.logger.Warn("event dropped, broadcast buffer full",
				zap.String("op", msg.Op),
				zap.String("class", msg.Class))
		}
	})
}

// run handles the WebSocket connection lifecycle.
func (h *EventHub) run() {
	for {
		select {
		case <-h.done:
			h.logger.Debug("event hub shutting down")
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.connections[conn] = true
			total := len(h.connections)
			h.mutex.Unlock()
			h.logger.Debug("client connected", zap.Int("total", total))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.Close()
			}
			total := len(h.connections)
			h.mutex.Unlock()
			h.logger.Debug("client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			h.sendToAll(message)
		}
	}
}

// sendToAll sends a message to all connected clients.
func (h *EventHub) sendToAll(message *EventMessage) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	// Collect failed connections while holding read lock
	h.mutex.RLock()
	var failedConns []*websocket.Conn
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
			h.logger.Debug("failed to send event", zap.Error(err))
			failedConns = append(failedConns, conn)
		}
	}
	h.mutex.RUnlock()

	// Remove failed connections with write lock
	if len(failedConns) > 0 {
		h.mutex.Lock()
		for _, conn := range failedConns {
			if _, ok := h.connections[conn]; ok {
				conn.Close()
				delete(h.connections, conn)
			}
		}
		h.mutex.Unlock()
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket.
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	h.register <- conn

	// Reading keeps the connection alive and detects closes.
	go h.readMessages(conn)
}

// readMessages reads messages from the client (for keepalive).
func (h *EventHub) readMessages(conn *websocket.Conn) {
	defer func() {
		// After Close the run loop is gone and nobody drains unregister.
		select {
		case h.unregister <- conn:
		case <-h.done:
			conn.Close()
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			break
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *EventHub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Close closes all connections and stops the hub.
func (h *EventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mutex.Lock()
		defer h.mutex.Unlock()

		for conn := range h.connections {
			conn.Close()
		}
		h.connections = make(map[*websocket.Conn]bool)
	})
}
