package repository

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/db"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository")

// ErrUsernameTaken is returned when a write would break username uniqueness.
var ErrUsernameTaken = errors.New("username already taken")

//go:generate mockgen -source=user_repository.go -destination=../../mocks/user_repository_mock.go -package=mocks

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

type sqlUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new sqlx-based UserRepository.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

// CreateUser inserts a new user and sets user.ID.
func (r *sqlUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, span := tracer.Start(ctx, "UserRepository.CreateUser")
	defer span.End()

	query := r.db.Rebind(`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash).Scan(&user.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		recordError(span, err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	return nil
}

// GetUserByID retrieves a user by id.
func (r *sqlUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserRepository.GetUserByID", trace.WithAttributes(
		attribute.Int64("user.id", id),
	))
	defer span.End()

	var user models.User
	query := r.db.Rebind(`SELECT id, username, password_hash FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No user found is not an application error
		}
		recordError(span, err)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user from the database by their username.
func (r *sqlUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserRepository.GetUserByUsername")
	defer span.End()

	var user models.User
	query := r.db.Rebind(`SELECT id, username, password_hash FROM users WHERE username = ?`)
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		recordError(span, err)
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

// UpdateUsername renames a user.
func (r *sqlUserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	ctx, span := tracer.Start(ctx, "UserRepository.UpdateUsername", trace.WithAttributes(
		attribute.Int64("user.id", id),
	))
	defer span.End()

	query := r.db.Rebind(`UPDATE users SET username = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, username, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		recordError(span, err)
		return fmt.Errorf("failed to update username: %w", err)
	}
	return expectOneRow(res, "user")
}

// UpdatePasswordHash replaces the stored password hash of a user.
func (r *sqlUserRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "UserRepository.UpdatePasswordHash", trace.WithAttributes(
		attribute.Int64("user.id", id),
	))
	defer span.End()

	query := r.db.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(res, "user")
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
