package service_test

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"ctchen222/Todo-Tracker/internal/api/service"
	"ctchen222/Todo-Tracker/internal/events"
	"ctchen222/Todo-Tracker/internal/mocks"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type taskFixture struct {
	tasks     *mocks.MockTaskRepository
	publisher *mocks.MockPublisher
	svc       service.TaskService
}

func newTaskFixture(t *testing.T) *taskFixture {
	ctrl := gomock.NewController(t)
	f := &taskFixture{
		tasks:     mocks.NewMockTaskRepository(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
	}
	f.svc = service.NewTaskService(f.tasks, f.publisher)
	return f
}

func expectEvent(t *testing.T, p *mocks.MockPublisher, eventType string, want events.TaskChangedPayload) {
	p.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		assert.Equal(t, eventType, e.Type)
		got, err := e.TaskPayload()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		return nil
	})
}

func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and publishes", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().CreateTask(gomock.Any(), &models.Task{Content: "buy milk", OwnerID: 1}).DoAndReturn(
			func(_ context.Context, task *models.Task) error {
				task.ID = 10
				return nil
			})
		expectEvent(t, f.publisher, events.TypeTaskCreated, events.TaskChangedPayload{TaskID: 10, OwnerID: 1, Content: "buy milk"})

		task, err := f.svc.CreateTask(ctx, 1, &models.TaskRequest{Content: "buy milk"})
		require.NoError(t, err)
		assert.Equal(t, &models.Task{ID: 10, Content: "buy milk", OwnerID: 1}, task)
	})

	t.Run("content length bounds", func(t *testing.T) {
		tests := []struct {
			content string
			valid   bool
		}{
			{"x", false},
			{"xy", true},
			{"abcdefghijklmnopqrstuvwxyzabcd", true},
			{"abcdefghijklmnopqrstuvwxyzabcde", false},
			{"", false},
		}
		for _, tt := range tests {
			t.Run(tt.content, func(t *testing.T) {
				f := newTaskFixture(t)
				if tt.valid {
					f.tasks.EXPECT().CreateTask(gomock.Any(), gomock.Any()).Return(nil)
					f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
				}

				_, err := f.svc.CreateTask(ctx, 1, &models.TaskRequest{Content: tt.content})
				if tt.valid {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, service.ErrValidation)
				}
			})
		}
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().CreateTask(gomock.Any(), gomock.Any()).Return(nil)
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("hub busy"))

		_, err := f.svc.CreateTask(ctx, 1, &models.TaskRequest{Content: "buy milk"})
		assert.NoError(t, err)
	})
}

func TestTaskService_ListTasks(t *testing.T) {
	f := newTaskFixture(t)
	want := []models.Task{{ID: 1, Content: "a1", OwnerID: 5}, {ID: 2, Content: "a2", OwnerID: 5}}
	f.tasks.EXPECT().ListTasksByOwner(gomock.Any(), int64(5)).Return(want, nil)

	got, err := f.svc.ListTasks(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTaskService_GetTask(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		stored  *models.Task
		userID  int64
		wantErr error
	}{
		{"owner", &models.Task{ID: 9, Content: "mine", OwnerID: 1}, 1, nil},
		{"other user", &models.Task{ID: 9, Content: "mine", OwnerID: 1}, 2, service.ErrForbidden},
		{"missing", nil, 1, service.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture(t)
			f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(tt.stored, nil)

			task, err := f.svc.GetTask(ctx, tt.userID, 9)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stored, task)
		})
	}
}

func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	stored := func() *models.Task { return &models.Task{ID: 9, Content: "buy milk", OwnerID: 1} }

	t.Run("updates", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(stored(), nil)
		f.tasks.EXPECT().UpdateTaskContent(gomock.Any(), int64(9), int64(1), "buy oat milk").Return(nil)
		expectEvent(t, f.publisher, events.TypeTaskUpdated, events.TaskChangedPayload{TaskID: 9, OwnerID: 1, Content: "buy oat milk"})

		task, result, err := f.svc.UpdateTask(ctx, 1, 9, &models.TaskRequest{Content: "buy oat milk"})
		require.NoError(t, err)
		assert.Equal(t, service.TaskUpdated, result)
		assert.Equal(t, "buy oat milk", task.Content)
	})

	t.Run("identical content is unchanged", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(stored(), nil)

		_, result, err := f.svc.UpdateTask(ctx, 1, 9, &models.TaskRequest{Content: "buy milk"})
		require.NoError(t, err)
		assert.Equal(t, service.TaskUnchanged, result)
	})

	t.Run("not owner", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(stored(), nil)

		_, _, err := f.svc.UpdateTask(ctx, 2, 9, &models.TaskRequest{Content: "hijack"})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("missing wins over bad content", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(nil, nil)

		_, _, err := f.svc.UpdateTask(ctx, 1, 9, &models.TaskRequest{Content: "x"})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("bad content", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(stored(), nil)

		task, _, err := f.svc.UpdateTask(ctx, 1, 9, &models.TaskRequest{Content: "x"})
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.Equal(t, "buy milk", task.Content)
	})

	t.Run("deleted concurrently", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(stored(), nil)
		f.tasks.EXPECT().UpdateTaskContent(gomock.Any(), int64(9), int64(1), "later").Return(repository.ErrNoRows)

		_, _, err := f.svc.UpdateTask(ctx, 1, 9, &models.TaskRequest{Content: "later"})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestTaskService_DeleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and publishes", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(&models.Task{ID: 9, Content: "done", OwnerID: 1}, nil)
		f.tasks.EXPECT().DeleteTask(gomock.Any(), int64(9), int64(1)).Return(nil)
		expectEvent(t, f.publisher, events.TypeTaskDeleted, events.TaskChangedPayload{TaskID: 9, OwnerID: 1, Content: "done"})

		task, err := f.svc.DeleteTask(ctx, 1, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(9), task.ID)
	})

	t.Run("not owner", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(&models.Task{ID: 9, Content: "done", OwnerID: 1}, nil)

		_, err := f.svc.DeleteTask(ctx, 2, 9)
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("missing", func(t *testing.T) {
		f := newTaskFixture(t)
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(nil, nil)

		_, err := f.svc.DeleteTask(ctx, 1, 9)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newTaskFixture(t)
		boom := errors.New("locked")
		f.tasks.EXPECT().GetTaskByID(gomock.Any(), int64(9)).Return(nil, boom)

		_, err := f.svc.DeleteTask(ctx, 1, 9)
		var serr *service.StorageError
		require.ErrorAs(t, err, &serr)
		assert.ErrorIs(t, err, boom)
	})
}
