package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Pub/Sub channel constants
const (
	TaskEventsChannel = "channel:task_events"
)

// Event types
const (
	TypeTaskCreated = "task_created"
	TypeTaskUpdated = "task_updated"
	TypeTaskDeleted = "task_deleted"
)

// Event represents a message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// TaskChangedPayload is the payload of every task_* event.
type TaskChangedPayload struct {
	TaskID  int64  `json:"task_id"`
	OwnerID int64  `json:"owner_id"`
	Content string `json:"content,omitempty"`
}

// NewTaskEvent wraps payload in an Event of the given type.
func NewTaskEvent(eventType string, payload TaskChangedPayload) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: data}, nil
}

// TaskPayload decodes the payload of a task_* event.
func (e Event) TaskPayload() (TaskChangedPayload, error) {
	var p TaskChangedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return p, nil
}

//go:generate mockgen -source=events.go -destination=../mocks/publisher_mock.go -package=mocks

// Publisher delivers events to whoever is listening.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type redisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher publishes events on TaskEventsChannel.
func NewRedisPublisher(rdb *redis.Client) Publisher {
	return &redisPublisher{rdb: rdb}
}

func (p *redisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, TaskEventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}
	return nil
}
