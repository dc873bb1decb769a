package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/queue"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Connection is one browser tab following a session's workflow events.
type Connection struct {
	ID            string
	SessionID     string
	Conn          *websocket.Conn
	Send          chan []byte
	sessionStream *queue.SessionStream
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.Mutex
	logger        *slog.Logger
}

// Hub tracks the live connections of this gateway instance.
type Hub struct {
	connections   map[string]*Connection
	register      chan *Connection
	unregister    chan *Connection
	sessionStream *queue.SessionStream
	logger        *slog.Logger
	mu            sync.RWMutex
}

func NewHub(sessionStream *queue.SessionStream, logger *slog.Logger) *Hub {
	return &Hub{
		connections:   make(map[string]*Connection),
		register:      make(chan *Connection),
		unregister:    make(chan *Connection),
		sessionStream: sessionStream,
		logger:        logger,
	}
}

func (h *Hub) Run() {
	h.logger.Info("starting websocket hub")

	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)
		case conn := <-h.unregister:
			h.unregisterConnection(conn)
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	urlPath := strings.TrimPrefix(r.URL.Path, "/stream/session/")
	sessionID := strings.Split(urlPath, "/")[0]

	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	if len(sessionID) != 36 {
		http.Error(w, "Invalid session_id format", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.logger.Info("new websocket connection", "session_id", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &Connection{
		ID:            fmt.Sprintf("ws_%s_%d", sessionID, time.Now().UnixNano()),
		SessionID:     sessionID,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		sessionStream: h.sessionStream,
		ctx:           ctx,
		cancel:        cancel,
		logger:        h.logger,
	}

	h.register <- wsConn
	go wsConn.writePump(h)
	go wsConn.readPump(h)
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()

	go conn.followSessionStream()

	welcome := map[string]interface{}{
		"type":          "connection_established",
		"connection_id": conn.ID,
		"session_id":    conn.SessionID,
		"timestamp":     time.Now(),
	}
	if data, err := json.Marshal(welcome); err == nil {
		select {
		case conn.Send <- data:
		default:
		}
	}
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	if _, exists := h.connections[conn.ID]; exists {
		delete(h.connections, conn.ID)
		close(conn.Send)
		conn.cancel()
		h.logger.Info("unregistered websocket connection",
			"connection_id", conn.ID,
			"remaining", len(h.connections))
	}
	h.mu.Unlock()
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// followSessionStream tails the session's event stream and forwards every
// workflow event to the browser.
func (conn *Connection) followSessionStream() {
	subscription, err := conn.sessionStream.SubscribeToSession(conn.ctx, conn.SessionID)
	if err != nil {
		conn.logger.Error("failed to subscribe to session stream",
			"error", err,
			"connection_id", conn.ID)
		failure := map[string]interface{}{
			"type":    "subscription_failed",
			"message": "Failed to subscribe to session events",
		}
		if data, err2 := json.Marshal(failure); err2 == nil {
			select {
			case conn.Send <- data:
			default:
			}
		}
		return
	}

	for {
		select {
		case <-conn.ctx.Done():
			return

		case msg, ok := <-subscription.Channel:
			if !ok {
				return
			}
			conn.send(conn.wrapStreamMessage(msg))
		}
	}
}

func (conn *Connection) wrapStreamMessage(msg *models.StreamMessage) map[string]interface{} {
	wsMsg := map[string]interface{}{
		"type":       "workflow_update",
		"event_type": string(msg.EventType),
		"session_id": msg.SessionID,
		"timestamp":  msg.Timestamp,
		"sequence":   msg.Sequence,
	}
	if msg.Data != nil {
		wsMsg["state"] = msg.Data
	}
	if msg.Error != nil {
		wsMsg["error"] = map[string]interface{}{
			"code":    msg.Error.Code,
			"message": msg.Error.Message,
		}
	}
	return wsMsg
}

func (conn *Connection) send(m map[string]interface{}) {
	data, err := json.Marshal(m)
	if err != nil {
		conn.logger.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case conn.Send <- data:
	case <-time.After(10 * time.Second):
		conn.logger.Warn("websocket send timeout, dropping message",
			"connection_id", conn.ID)
	}
}

func (conn *Connection) readPump(hub *Hub) {
	defer func() {
		hub.unregister <- conn
	}()
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				conn.logger.Error("websocket read error", "error", err)
			}
			break
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err == nil {
			conn.handleIncomingMessage(msg)
		}
	}
}

func (conn *Connection) writePump(hub *Hub) {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.mu.Lock()
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = conn.Conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutdown"),
					time.Now().Add(2*time.Second),
				)
				conn.mu.Unlock()
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				conn.logger.Error("websocket write error",
					"error", err,
					"connection_id", conn.ID)
				conn.mu.Unlock()
				return
			}
			conn.mu.Unlock()

		case <-ticker.C:
			conn.mu.Lock()
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.logger.Error("websocket ping failed",
					"error", err,
					"connection_id", conn.ID)
				conn.mu.Unlock()
				return
			}
			conn.mu.Unlock()
		}
	}
}

func (conn *Connection) handleIncomingMessage(msg map[string]interface{}) {
	msgType, ok := msg["type"].(string)
	if !ok {
		return
	}

	switch msgType {
	case "ping":
		response := map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now(),
		}
		if data, err := json.Marshal(response); err == nil {
			select {
			case conn.Send <- data:
			default:
			}
		}

	case "request_events":
		go conn.sendRecentEvents()
	}
}

// sendRecentEvents replays the last stored workflow events so a reconnecting
// tab can catch up.
func (conn *Connection) sendRecentEvents() {
	history, err := conn.sessionStream.GetSessionHistory(conn.ctx, conn.SessionID, 20)
	if err != nil {
		conn.logger.Error("failed to get session event history",
			"error", err,
			"connection_id", conn.ID)
		return
	}

	events := make([]map[string]interface{}, len(history))
	for i, msg := range history {
		events[i] = conn.wrapStreamMessage(msg)
	}

	response := map[string]interface{}{
		"type":       "events_response",
		"session_id": conn.SessionID,
		"events":     events,
		"timestamp":  time.Now(),
	}
	if data, err := json.Marshal(response); err == nil {
		select {
		case conn.Send <- data:
		default:
			conn.logger.Warn("failed to send event history (channel full)",
				"connection_id", conn.ID)
		}
	}
}

// Handler is the http.Handler wrapper the router mounts.
type Handler struct {
	hub *Hub
}

func NewHandler(sessionStream *queue.SessionStream, logger *slog.Logger) *Handler {
	hub := NewHub(sessionStream, logger)
	go hub.Run()

	return &Handler{hub: hub}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hub.HandleWebSocket(w, r)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"active_connections": h.hub.ConnectionCount(),
		"timestamp":          time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
