package hub

import (
	"context"
	"ctchen222/Todo-Tracker/internal/events"
	"ctchen222/Todo-Tracker/pkg/proto"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

const (
	sendBufferSize     = 16
	dispatchBufferSize = 64
	heartbeatInterval  = 30 * time.Second
)

var (
	ErrHubClosed = errors.New("hub is closed")
	ErrHubBusy   = errors.New("hub dispatch queue is full")
)

// SessionCheck reports whether a session is still live.
type SessionCheck func(ctx context.Context, sessionID string) (bool, error)

// Hub keeps the open task-event websockets of every user and forwards each
// task event to the connections of the task's owner. Every connection belongs
// to one login session and is closed when that session ends.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	kick       chan func(*Client) bool
	dispatch   chan events.Event
	done       chan struct{}
	upgrader   websocket.Upgrader
	heartbeat  time.Duration
	check      SessionCheck
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		kick:       make(chan func(*Client) bool),
		dispatch:   make(chan events.Event, dispatchBufferSize),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		heartbeat: heartbeatInterval,
	}
}

// CheckSessions makes every heartbeat confirm that the connection's session
// is still live. It must be called before Run.
func (h *Hub) CheckSessions(check SessionCheck) {
	h.check = check
}

// Run owns the client registry until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	slog.InfoContext(ctx, "Task event hub started")

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					c.close()
				}
			}
			h.clients = make(map[int64]map[*Client]struct{})
			slog.Info("Task event hub stopped")
			return

		case c := <-h.register:
			set, ok := h.clients[c.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.UserID] = set
			}
			set[c] = struct{}{}
			slog.Debug("Client registered", "user.id", c.UserID, "connections", len(set))

		case c := <-h.unregister:
			h.remove(c)
			slog.Debug("Client unregistered", "user.id", c.UserID)

		case match := <-h.kick:
			for _, set := range h.clients {
				for c := range set {
					if match(c) {
						h.remove(c)
						slog.Debug("Client disconnected, session ended", "user.id", c.UserID)
					}
				}
			}

		case e := <-h.dispatch:
			h.deliver(ctx, e)
		}
	}
}

// Publish queues e for delivery to local connections. Delivery is best
// effort: a full queue drops the event.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.dispatch <- e:
		return nil
	default:
		return ErrHubBusy
	}
}

// ServeWS upgrades the request to a websocket owned by userID and bound to
// the session sessionID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64, sessionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	if h.Attach(userID, sessionID, conn) == nil {
		return ErrHubClosed
	}
	return nil
}

// Attach registers conn for userID and starts its pumps. It returns nil and
// closes conn when the hub has stopped.
func (h *Hub) Attach(userID int64, sessionID string, conn Connection) *Client {
	c := newClient(h, userID, sessionID, conn)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}
	go c.writePump(h.heartbeat)
	go c.readPump()
	return c
}

// SessionEnded closes the connections opened under sessionID. It returns once
// the hub has dropped them, so no later event reaches them.
func (h *Hub) SessionEnded(_ context.Context, sessionID string) {
	h.disconnect(func(c *Client) bool { return c.SessionID == sessionID })
}

// UserSessionsEnded closes every connection of userID.
func (h *Hub) UserSessionsEnded(_ context.Context, userID int64) {
	h.disconnect(func(c *Client) bool { return c.UserID == userID })
}

func (h *Hub) disconnect(match func(*Client) bool) {
	select {
	case h.kick <- match:
	case <-h.done:
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	c.close()
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

func (h *Hub) deliver(ctx context.Context, e events.Event) {
	_, span := tracer.Start(ctx, "hub.deliver", trace.WithAttributes(
		attribute.String("event.type", e.Type),
	))
	defer span.End()

	payload, err := e.TaskPayload()
	if err != nil {
		slog.ErrorContext(ctx, "Could not decode task event", "event.type", e.Type, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not decode task event")
		return
	}
	span.SetAttributes(attribute.Int64("user.id", payload.OwnerID), attribute.Int64("task.id", payload.TaskID))

	set := h.clients[payload.OwnerID]
	if len(set) == 0 {
		return
	}

	data, err := json.Marshal(proto.ServerToClientMessage{
		Type:    e.Type,
		TaskID:  payload.TaskID,
		Content: payload.Content,
	})
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return
	}

	for c := range set {
		if !c.enqueue(data) {
			slog.WarnContext(ctx, "Dropping slow client", "user.id", c.UserID)
			h.remove(c)
		}
	}
}
