package repository

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/db"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Connect(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.InitializeDB(ctx, conn))
	return conn
}

func createUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "hash-" + username}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice")
	assert.NotZero(t, alice.ID)

	byName, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, byName)

	byID, err := repo.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, byID)
}

func TestUserRepository_MissingUserIsNil(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user, err := repo.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.GetUserByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserRepository_UsernameIsUniqueAndCaseSensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	createUser(t, repo, "alice")

	err := repo.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	createUser(t, repo, "Alice")
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	alice := createUser(t, repo, "alice")
	createUser(t, repo, "bob")

	require.NoError(t, repo.UpdateUsername(ctx, alice.ID, "alicia"))
	assert.ErrorIs(t, repo.UpdateUsername(ctx, alice.ID, "bob"), ErrUsernameTaken)
	require.NoError(t, repo.UpdatePasswordHash(ctx, alice.ID, "new-hash"))

	got, err := repo.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, 999, "x"), ErrNoRows)
}

func TestTaskRepository_ListIsScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	tasks := NewTaskRepository(conn)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, tasks.CreateTask(ctx, &models.Task{Content: content, OwnerID: alice.ID}))
	}
	require.NoError(t, tasks.CreateTask(ctx, &models.Task{Content: "bob's", OwnerID: bob.ID}))

	got, err := tasks.ListTasksByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)
	for _, task := range got {
		assert.Equal(t, alice.ID, task.OwnerID)
	}

	empty, err := tasks.ListTasksByOwner(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestTaskRepository_UpdateAndDeleteRequireOwner(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	tasks := NewTaskRepository(conn)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	task := &models.Task{Content: "buy milk", OwnerID: alice.ID}
	require.NoError(t, tasks.CreateTask(ctx, task))

	assert.ErrorIs(t, tasks.UpdateTaskContent(ctx, task.ID, bob.ID, "hijacked"), ErrNoRows)
	assert.ErrorIs(t, tasks.DeleteTask(ctx, task.ID, bob.ID), ErrNoRows)

	require.NoError(t, tasks.UpdateTaskContent(ctx, task.ID, alice.ID, "buy oat milk"))
	got, err := tasks.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", got.Content)

	require.NoError(t, tasks.DeleteTask(ctx, task.ID, alice.ID))
	got, err = tasks.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, tasks.DeleteTask(ctx, task.ID, alice.ID), ErrNoRows)
}

func TestTaskRepository_OwnerMustExist(t *testing.T) {
	tasks := NewTaskRepository(newTestDB(t))
	err := tasks.CreateTask(context.Background(), &models.Task{Content: "orphan", OwnerID: 42})
	assert.Error(t, err)
}
