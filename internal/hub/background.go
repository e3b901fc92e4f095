package hub

import (
	"context"
	"ctchen222/Todo-Tracker/internal/events"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunRedisSubscriber feeds events published by any server instance into the
// local hub until ctx is cancelled.
func (h *Hub) RunRedisSubscriber(ctx context.Context, rdb *redis.Client) {
	pubsub := rdb.Subscribe(ctx, events.TaskEventsChannel)
	defer pubsub.Close()

	slog.InfoContext(ctx, "Event subscriber started", "channel", events.TaskEventsChannel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event subscriber stopped", "channel", events.TaskEventsChannel)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRedisMessage(ctx, msg.Payload)
		}
	}
}

func (h *Hub) handleRedisMessage(ctx context.Context, payload string) {
	ctx, span := tracer.Start(ctx, "hub.handleRedisMessage", trace.WithAttributes(
		attribute.String("redis.channel", events.TaskEventsChannel),
	))
	defer span.End()

	var e events.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal task event", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not unmarshal task event")
		return
	}
	span.SetAttributes(attribute.String("event.type", e.Type))

	if err := h.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Could not dispatch task event", "event.type", e.Type, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not dispatch task event")
	}
}
