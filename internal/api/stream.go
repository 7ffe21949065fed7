package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tradereads/tradereads-api/internal/events"
	"github.com/tradereads/tradereads-api/internal/platform/logger"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = (streamPongTimeout * 9) / 10
	streamSendBuffer   = 32
)

// StreamHub pushes trade events to the WebSocket connections of the users
// they concern. It implements events.EventHandler.
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*streamClient]struct{}
	closed  bool
}

type streamClient struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

var _ events.EventHandler = (*StreamHub)(nil)

// NewStreamHub creates an empty hub.
func NewStreamHub(logger *slog.Logger) *StreamHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger.With(slog.String("component", "trade_stream")),
		clients: make(map[uuid.UUID]map[*streamClient]struct{}),
	}
}

// HandleEvent queues the event for every connection of its recipients.
// A connection whose buffer is full misses the event.
func (h *StreamHub) HandleEvent(_ context.Context, event *events.TradeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range event.Recipients() {
		for c := range h.clients[userID] {
			select {
			case c.send <- payload:
			default:
				h.logger.Warn("stream client too slow, event dropped",
					"user_id", userID, "event_id", event.ID)
			}
		}
	}
	return nil
}

// Connections returns the number of open connections for userID.
func (h *StreamHub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades GET /trades/stream for the authenticated caller.
func (h *StreamHub) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.FromContext(r.Context()).Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{userID: userID, conn: conn, send: make(chan []byte, streamSendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(streamWriteTimeout))
		_ = conn.Close()
		return
	}
	h.logger.Debug("stream client connected", "user_id", userID)

	go h.writeLoop(c)
	h.readLoop(c)
}

// Close disconnects every client and rejects new ones.
func (h *StreamHub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*streamClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[uuid.UUID]map[*streamClient]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.stop()
	}
}

func (h *StreamHub) register(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*streamClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *StreamHub) unregister(c *streamClient) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.stop()
}

// stop closes the send queue exactly once, ending writeLoop.
func (c *streamClient) stop() {
	c.once.Do(func() { close(c.send) })
}

// readLoop discards client messages. It returns when the peer goes away.
func (h *StreamHub) readLoop(c *streamClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writeLoop(c *streamClient) {
	ticker := time.NewTicker(streamPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
