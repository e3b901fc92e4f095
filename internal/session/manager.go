package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSession means the token does not identify a live session.
var ErrNoSession = errors.New("no active session")

// Listener is told about sessions ended before their expiry, so that
// connections opened under them can be closed.
type Listener interface {
	SessionEnded(ctx context.Context, sessionID string)
	UserSessionsEnded(ctx context.Context, userID int64)
}

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager issues and resolves session tokens. A token is an HS256 JWT naming
// the user and a session id; it is honoured only while the session exists in
// the Store.
type Manager struct {
	store     Store
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
	listeners []Listener
}

// NewManager creates a Manager signing tokens with secret.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// AddListener registers l for session end notifications. It must be called
// before the Manager is used.
func (m *Manager) AddListener(l Listener) {
	m.listeners = append(m.listeners, l)
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates a session for userID and returns its signed token.
func (m *Manager) Start(ctx context.Context, userID int64) (string, error) {
	now := m.now()
	s := &Session{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Resolve returns the user id behind token, or ErrNoSession.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, error) {
	s, err := m.ResolveSession(ctx, token)
	if err != nil {
		return 0, err
	}
	return s.UserID, nil
}

// ResolveSession returns the live session behind token, or ErrNoSession.
func (m *Manager) ResolveSession(ctx context.Context, token string) (*Session, error) {
	c, err := m.parse(token, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrNoSession
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, ErrNoSession
	}

	s, err := m.store.Get(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UserID != userID {
		return nil, ErrNoSession
	}
	return s, nil
}

// Active reports whether the session sessionID still exists.
func (m *Manager) Active(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

// End deletes the session behind token. Unknown, expired or malformed tokens
// are ignored, so ending a session twice is harmless.
func (m *Manager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	c, err := m.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, c.SessionID); err != nil {
		return err
	}
	for _, l := range m.listeners {
		l.SessionEnded(ctx, c.SessionID)
	}
	return nil
}

// EndAll deletes every session of userID.
func (m *Manager) EndAll(ctx context.Context, userID int64) error {
	if err := m.store.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	for _, l := range m.listeners {
		l.UserSessionsEnded(ctx, userID)
	}
	return nil
}

func (m *Manager) parse(token string, opts ...jwt.ParserOption) (*claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if c.SessionID == "" {
		return nil, errors.New("token has no session id")
	}
	return c, nil
}
