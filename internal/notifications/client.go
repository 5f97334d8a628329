package notifications

import (
	"log/slog"
	"sync"
	"time"

	"socially/internal/middleware"
	"socially/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything larger is a misbehaving peer.
	maxMessageSize = 4096

	sendBuffer = 64
)

var dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// Client is one websocket connection of a user.
type Client struct {
	hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// ReadPump drains the connection until it closes, keeping the read deadline
// fresh on pongs. It unregisters the client on return.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					slog.String("user_id", c.UserID), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump writes queued messages and periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "connection closed"))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. When the buffer is full the
// message is dropped and the client is told so it can re-fetch.
func (c *Client) TrySend(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return
	}

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
	})
}
