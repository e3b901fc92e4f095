package service

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AccountService changes the profile of the logged in user.
type AccountService interface {
	UpdateUsername(ctx context.Context, user *models.User, req *models.UpdateUsernameRequest) (bool, error)
	ChangePassword(ctx context.Context, user *models.User, req *models.ChangePasswordRequest) error
}

type accountService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	sessions SessionManager
}

// NewAccountService creates a new AccountService.
func NewAccountService(userRepo repository.UserRepository, hasher PasswordHasher, sessions SessionManager) AccountService {
	return &accountService{userRepo: userRepo, hasher: hasher, sessions: sessions}
}

// UpdateUsername renames user. It reports false when the name is unchanged.
func (s *accountService) UpdateUsername(ctx context.Context, user *models.User, req *models.UpdateUsernameRequest) (bool, error) {
	ctx, span := tracer.Start(ctx, "AccountService.UpdateUsername", trace.WithAttributes(
		attribute.Int64("user.id", user.ID),
	))
	defer span.End()

	if err := validate(req); err != nil {
		return false, err
	}
	if req.Username == user.Username {
		return false, nil
	}

	existing, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to look up username")
		return false, storageError("update username", err)
	}
	if existing != nil {
		return false, fieldError("username", usernameTakenMessage)
	}

	if err := s.userRepo.UpdateUsername(ctx, user.ID, req.Username); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return false, fieldError("username", usernameTakenMessage)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update username")
		return false, storageError("update username", err)
	}

	slog.InfoContext(ctx, "Username updated", "user.id", user.ID, "old_name", user.Username, "new_name", req.Username)
	user.Username = req.Username
	return true, nil
}

// ChangePassword replaces the password of user and ends all of its sessions.
func (s *accountService) ChangePassword(ctx context.Context, user *models.User, req *models.ChangePasswordRequest) error {
	ctx, span := tracer.Start(ctx, "AccountService.ChangePassword", trace.WithAttributes(
		attribute.Int64("user.id", user.ID),
	))
	defer span.End()

	if err := validate(req); err != nil {
		return err
	}
	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		slog.WarnContext(ctx, "Password change rejected, wrong old password", "user.id", user.ID)
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to hash password")
		return err
	}

	// Sessions end before the hash changes. A failure keeps the old password.
	if err := s.sessions.EndAll(ctx, user.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to end sessions")
		return storageError("change password", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store password")
		return storageError("change password", err)
	}
	user.PasswordHash = hash

	slog.InfoContext(ctx, "Password changed", "user.id", user.ID)
	return nil
}
