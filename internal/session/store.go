package session

import (
	"context"
	"time"
)

// Session binds an opaque id to an authenticated user.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
}

// Store persists sessions for a bounded time.
type Store interface {
	// Save stores s; it is forgotten after ttl.
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	// Get returns nil, nil when id is unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
