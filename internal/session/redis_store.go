package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

const (
	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
)

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Store keeping each session in a Redis hash with a
// TTL, plus a per-user set of session ids.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// Save writes the session hash and indexes it under its user.
func (r *redisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "RedisStore.Save", trace.WithAttributes(
		attribute.Int64("user.id", s.UserID),
	))
	defer span.End()

	key := sessionKey(s.ID)
	userKey := userSessionsKey(s.UserID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldUserID, s.UserID, fieldCreatedAt, s.CreatedAt.Unix())
		pipe.Expire(ctx, key, ttl)
		pipe.SAdd(ctx, userKey, s.ID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save session")
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

// Get loads a session by id.
func (r *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Get")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get session")
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	userID, err := strconv.ParseInt(data[fieldUserID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	createdAt, err := strconv.ParseInt(data[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}

	return &Session{ID: id, UserID: userID, CreatedAt: time.Unix(createdAt, 0)}, nil
}

// Delete removes a session; deleting an unknown id is not an error.
func (r *redisStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "RedisStore.Delete")
	defer span.End()

	key := sessionKey(id)
	userIDStr, err := r.rdb.HGet(ctx, key, fieldUserID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read session owner")
		return fmt.Errorf("failed to read session from redis: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if userID, err := strconv.ParseInt(userIDStr, 10, 64); err == nil {
		pipe.SRem(ctx, userSessionsKey(userID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (r *redisStore) DeleteByUser(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "RedisStore.DeleteByUser", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	userKey := userSessionsKey(userID)
	ids, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list user sessions")
		return fmt.Errorf("failed to list user sessions in redis: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey)

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete user sessions")
		return fmt.Errorf("failed to delete user sessions in redis: %w", err)
	}
	span.SetAttributes(attribute.Int("session.count", len(ids)))
	return nil
}
