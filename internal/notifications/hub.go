package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"socially/internal/middleware"
	"socially/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	ErrServerFull   = errors.New("server connection limit reached")
	ErrUserConnsMax = errors.New("user connection limit reached")
)

// Hub maps user ids to their open websocket clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Client]struct{})}
}

// Register adds a connection for userID, enforcing per-user and global limits.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserConnsMax
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnections.Inc()
	return client, nil
}

func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; exists {
		delete(m, client)
		h.totalConns--
		observability.WebSocketConnections.Dec()
		client.closeSend()
	}
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
}

// Broadcast queues message on every connection of userID.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.TrySend(message)
	}
}

// ConnectionCount returns the number of open connections for userID.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// StartWiring forwards messages from the notifier's user channels to the
// matching local connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, ok := userFromChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, []byte(payload))
	})
}

// Shutdown closes every client's send queue; each WritePump then sends a
// going-away frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.conns {
		for client := range clients {
			client.closeSend()
		}
		middleware.Logger.Debug("closed websocket clients",
			slog.String("user_id", userID), slog.Int("count", len(clients)))
		observability.WebSocketConnections.Sub(float64(len(clients)))
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
