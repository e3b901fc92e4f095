package hub

import (
	"context"
	"ctchen222/Todo-Tracker/internal/validator"
	"ctchen222/Todo-Tracker/pkg/proto"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is one browser connection of a user.
type Client struct {
	UserID    int64
	SessionID string
	hub       *Hub
	conn      Connection

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(h *Hub, userID int64, sessionID string, conn Connection) *Client {
	return &Client{
		UserID:    userID,
		SessionID: sessionID,
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
	}
}

// enqueue reports false when the client is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump is the only writer of the connection.
func (c *Client) writePump(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("error writing message to client", "user.id", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			if !c.sessionLive() {
				slog.Info("Session ended, closing client", "user.id", c.UserID)
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Warn("Failed to send ping to client, assuming disconnect", "user.id", c.UserID, "error", err)
				return
			}
		}
	}
}

// sessionLive asks the hub's session check about the client's session. A
// failing check keeps the connection open.
func (c *Client) sessionLive() bool {
	if c.hub.check == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	live, err := c.hub.check(ctx, c.SessionID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to check client session", "user.id", c.UserID, "error", err)
		return true
	}
	return live
}

// readPump answers pings until the connection fails, then unregisters.
func (c *Client) readPump() {
	defer c.hub.leave(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			slog.Debug("Client connection closed", "user.id", c.UserID, "error", err)
			return
		}
		c.handleMessage(context.Background(), data)
	}
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg proto.ClientToServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "user.id", c.UserID, "error", err)
		c.reply(proto.ServerToClientMessage{Type: "error", Reason: "malformed message"})
		return
	}
	if err := validator.GetValidator().Struct(msg); err != nil {
		slog.WarnContext(ctx, "invalid message from client", "user.id", c.UserID, "error", err)
		c.reply(proto.ServerToClientMessage{Type: "error", Reason: "unsupported message"})
		return
	}
	c.reply(proto.ServerToClientMessage{Type: "pong"})
}

func (c *Client) reply(msg proto.ServerToClientMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(data)
}
