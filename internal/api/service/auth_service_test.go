package service_test

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"ctchen222/Todo-Tracker/internal/api/service"
	"ctchen222/Todo-Tracker/internal/mocks"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

var hasher = service.NewBcryptHasher(bcrypt.MinCost)

// countingHasher records the hashes Verify was asked to check.
type countingHasher struct {
	service.PasswordHasher
	verified []string
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.verified = append(h.verified, hash)
	return h.PasswordHasher.Verify(plaintext, hash)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := hasher.Hash(password)
	require.NoError(t, err)
	return h
}

func TestBcryptHasher(t *testing.T) {
	first, err := hasher.Hash("p@ss")
	require.NoError(t, err)
	second, err := hasher.Hash("p@ss")
	require.NoError(t, err)

	assert.NotEqual(t, "p@ss", first)
	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("p@ss", first))
	assert.True(t, hasher.Verify("p@ss", second))
	assert.False(t, hasher.Verify("P@ss", first))
	assert.False(t, hasher.Verify("p@ss", "not-a-hash"))
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))

		users.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, nil)
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *models.User) error {
				u.ID = 7
				return nil
			})

		user, err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "p@ss", ConfirmPassword: "p@ss"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.NotEqual(t, "p@ss", user.PasswordHash)
		assert.True(t, hasher.Verify("p@ss", user.PasswordHash))
	})

	t.Run("rejects invalid forms without touching storage", func(t *testing.T) {
		tests := []struct {
			name  string
			req   models.RegisterRequest
			field string
		}{
			{"password mismatch", models.RegisterRequest{Username: "bob", Password: "x", ConfirmPassword: "y"}, "confirm_password"},
			{"username too short", models.RegisterRequest{Username: "a", Password: "x", ConfirmPassword: "x"}, "username"},
			{"username too long", models.RegisterRequest{Username: "abcdefghijklmnopqrstu", Password: "x", ConfirmPassword: "x"}, "username"},
			{"empty password", models.RegisterRequest{Username: "bob"}, "password"},
			{"multibyte password over 72 bytes", models.RegisterRequest{Username: "bob", Password: strings.Repeat("é", 36) + "x", ConfirmPassword: strings.Repeat("é", 36) + "x"}, "password"},
			{"40 multibyte characters", models.RegisterRequest{Username: "bob", Password: strings.Repeat("é", 40), ConfirmPassword: strings.Repeat("é", 40)}, "password"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ctrl := gomock.NewController(t)
				svc := service.NewAuthService(mocks.NewMockUserRepository(ctrl), hasher, mocks.NewMockSessionManager(ctrl))

				_, err := svc.Register(ctx, &tt.req)
				var verr *service.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.ErrorIs(t, err, service.ErrValidation)
				assert.Contains(t, verr.Fields, tt.field)
			})
		}
	})

	t.Run("accepts password of exactly 72 bytes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))
		password := strings.Repeat("é", 36)

		users.EXPECT().GetUserByUsername(gomock.Any(), "bob").Return(nil, nil)
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil)

		user, err := svc.Register(ctx, &models.RegisterRequest{Username: "bob", Password: password, ConfirmPassword: password})
		require.NoError(t, err)
		assert.True(t, hasher.Verify(password, user.PasswordHash))
	})

	t.Run("rejects taken username", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))

		users.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(&models.User{ID: 1, Username: "alice"}, nil)

		_, err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "q", ConfirmPassword: "q"})
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields["username"], "taken")
	})

	t.Run("maps unique violation raced at insert", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))

		users.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, nil)
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(repository.ErrUsernameTaken)

		_, err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "q", ConfirmPassword: "q"})
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("wraps storage failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))

		boom := errors.New("disk on fire")
		users.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, boom)

		_, err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "q", ConfirmPassword: "q"})
		var serr *service.StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "register", serr.Op)
		assert.ErrorIs(t, err, boom)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	alice := &models.User{ID: 3, Username: "alice", PasswordHash: mustHash(t, "p@ss")}

	t.Run("starts a session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		sessions := mocks.NewMockSessionManager(ctrl)
		svc := service.NewAuthService(users, hasher, sessions)

		users.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(alice, nil)
		sessions.EXPECT().Start(gomock.Any(), int64(3)).Return("token-1", nil)

		user, token, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "p@ss"})
		require.NoError(t, err)
		assert.Equal(t, alice, user)
		assert.Equal(t, "token-1", token)
	})

	t.Run("wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))

		users.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(alice, nil)

		_, _, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := service.NewAuthService(users, hasher, mocks.NewMockSessionManager(ctrl))

		users.EXPECT().GetUserByUsername(gomock.Any(), "ghost").Return(nil, nil)

		_, _, err := svc.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "p@ss"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown user still runs bcrypt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		counting := &countingHasher{PasswordHasher: hasher}
		svc := service.NewAuthService(users, counting, mocks.NewMockSessionManager(ctrl))

		users.EXPECT().GetUserByUsername(gomock.Any(), "ghost").Return(nil, nil).Times(2)

		for range 2 {
			_, _, err := svc.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "p@ss"})
			assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		}

		require.Len(t, counting.verified, 2)
		assert.True(t, strings.HasPrefix(counting.verified[0], "$2a$"), "expected a bcrypt hash, got %q", counting.verified[0])
		assert.Equal(t, counting.verified[0], counting.verified[1], "placeholder hash is computed once")
	})

	t.Run("empty form", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := service.NewAuthService(mocks.NewMockUserRepository(ctrl), hasher, mocks.NewMockSessionManager(ctrl))

		_, _, err := svc.Login(ctx, &models.LoginRequest{})
		assert.ErrorIs(t, err, service.ErrValidation)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockSessionManager(ctrl)
	svc := service.NewAuthService(mocks.NewMockUserRepository(ctrl), hasher, sessions)

	sessions.EXPECT().End(gomock.Any(), "token-1").Return(nil)
	require.NoError(t, svc.Logout(context.Background(), "token-1"))

	boom := errors.New("redis down")
	sessions.EXPECT().End(gomock.Any(), "token-2").Return(boom)
	assert.ErrorIs(t, svc.Logout(context.Background(), "token-2"), boom)
}

func TestValidationError_Message(t *testing.T) {
	err := &service.ValidationError{Fields: map[string]string{
		"username": "Username is required.",
		"password": "Password is required.",
	}}
	assert.Equal(t, "validation failed: password: Password is required.; username: Username is required.", err.Error())
}
