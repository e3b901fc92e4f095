package service

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("service")

const usernameTakenMessage = "That username is taken. Please choose a different one."

//go:generate mockgen -destination=../../mocks/session_manager_mock.go -package=mocks ctchen222/Todo-Tracker/internal/api/service SessionManager

// SessionManager issues and revokes session tokens.
type SessionManager interface {
	Start(ctx context.Context, userID int64) (string, error)
	End(ctx context.Context, token string) error
	EndAll(ctx context.Context, userID int64) error
}

// AuthService defines registration, login and logout.
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	sessions SessionManager

	// unknownUserHash is verified against when the username does not exist,
	// so a failed login costs the same either way.
	unknownUserHash func() string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, hasher PasswordHasher, sessions SessionManager) AuthService {
	return &authService{
		userRepo: userRepo,
		hasher:   hasher,
		sessions: sessions,
		unknownUserHash: sync.OnceValue(func() string {
			hash, err := hasher.Hash("unknown-user")
			if err != nil {
				slog.Error("Failed to hash placeholder password", "error", err)
			}
			return hash
		}),
	}
}

// Register handles user registration.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if err := validate(req); err != nil {
		slog.WarnContext(ctx, "Registration rejected", "user.name", req.Username, "error", err)
		return nil, err
	}

	// Check if user already exists
	existingUser, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to look up username")
		return nil, storageError("register", err)
	}
	if existingUser != nil {
		slog.WarnContext(ctx, "Registration rejected, username taken", "user.name", req.Username)
		return nil, fieldError("username", usernameTakenMessage)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to hash password")
		return nil, err
	}

	user := &models.User{Username: req.Username, PasswordHash: hash}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, fieldError("username", usernameTakenMessage)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		return nil, storageError("register", err)
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	slog.InfoContext(ctx, "User registered", "user.id", user.ID, "user.name", user.Username)
	return user, nil
}

// Login checks the credentials and starts a session, returning its token.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if err := validate(req); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to look up username")
		return nil, "", storageError("login", err)
	}
	if user == nil {
		s.hasher.Verify(req.Password, s.unknownUserHash())
	}
	if user == nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		slog.WarnContext(ctx, "Login failed, credentials do not match", "user.name", req.Username)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to start session")
		return nil, "", storageError("login", err)
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	slog.InfoContext(ctx, "User logged in", "user.id", user.ID, "user.name", user.Username)
	return user, token, nil
}

// Logout ends the session behind token. It is safe to call repeatedly.
func (s *authService) Logout(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.sessions.End(ctx, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to end session")
		return storageError("logout", err)
	}
	return nil
}
