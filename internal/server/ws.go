package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/clipfactory/clipfactory/internal/auth"
)

// WSMessage is the envelope for all WebSocket communication.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one connected player.
type Client struct {
	ID   int64
	conn *websocket.Conn
	send chan WSMessage
}

// MessageHandler processes inbound messages from a client.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg WSMessage)
	OnConnect(ctx context.Context, playerID int64)
	OnDisconnect(ctx context.Context, playerID int64)
}

// Hub manages WebSocket clients. One client per player; a reconnect
// replaces the old connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*Client
	handler MessageHandler
	secret  string
	metrics *Metrics
	logger  *slog.Logger
}

func NewHub(sessionSecret string, handler MessageHandler, metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]*Client),
		handler: handler,
		secret:  sessionSecret,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	playerID, err := auth.Verify(h.secret, token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("ws accept", "err", err)
		return
	}

	client := &Client{
		ID:   playerID,
		conn: conn,
		send: make(chan WSMessage, 64),
	}

	h.register(client)
	h.metrics.IncrWSConn()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Only the connection that still owns the hub slot tears the session
	// down; a superseded connection unwinding must not stop its successor.
	defer func() {
		owned := h.unregister(client)
		h.metrics.DecrWSConn()
		if owned && h.handler != nil {
			h.handler.OnDisconnect(context.WithoutCancel(ctx), playerID)
		}
	}()

	if h.handler != nil {
		h.handler.OnConnect(ctx, playerID)
	}

	go h.writePump(ctx, client)
	h.readPump(ctx, client)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.ID]; ok {
		close(old.send)
		old.conn.Close(websocket.StatusPolicyViolation, "superseded by new connection")
	}
	h.clients[c.ID] = c
}

// unregister removes a client and reports whether it was still the
// registered connection for its player. Superseded clients return false:
// register already closed their send channel and handed the slot over.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
		close(c.send)
		return true
	}
	return false
}

// SendTo queues a message for a player; drops it if the buffer is full.
func (h *Hub) SendTo(playerID int64, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[playerID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("client send buffer full", "client", c.ID)
	}
}

// Connected reports whether a player currently has a live connection.
func (h *Hub) Connected(playerID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[playerID]
	return ok
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer func() {
		_ = c.conn.CloseNow()
	}()
	for {
		var msg WSMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return
		}
		if h.handler != nil {
			h.handler.HandleMessage(ctx, c, msg)
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
