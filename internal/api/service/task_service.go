package service

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"ctchen222/Todo-Tracker/internal/events"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UpdateResult tells whether UpdateTask changed anything.
type UpdateResult int

const (
	TaskUnchanged UpdateResult = iota
	TaskUpdated
)

// TaskService defines task operations scoped to one user.
type TaskService interface {
	ListTasks(ctx context.Context, userID int64) ([]models.Task, error)
	CreateTask(ctx context.Context, userID int64, req *models.TaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, req *models.TaskRequest) (*models.Task, UpdateResult, error)
	DeleteTask(ctx context.Context, userID, taskID int64) (*models.Task, error)
}

type taskService struct {
	taskRepo  repository.TaskRepository
	publisher events.Publisher
}

// NewTaskService creates a new TaskService publishing changes to publisher.
func NewTaskService(taskRepo repository.TaskRepository, publisher events.Publisher) TaskService {
	return &taskService{taskRepo: taskRepo, publisher: publisher}
}

// ListTasks returns the user's tasks in creation order.
func (s *taskService) ListTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListTasksByOwner(ctx, userID)
	if err != nil {
		return nil, storageError("list tasks", err)
	}
	return tasks, nil
}

// CreateTask adds a task owned by userID.
func (s *taskService) CreateTask(ctx context.Context, userID int64, req *models.TaskRequest) (*models.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.CreateTask", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	if err := validate(req); err != nil {
		return nil, err
	}

	task := &models.Task{Content: req.Content, OwnerID: userID}
	if err := s.taskRepo.CreateTask(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create task")
		return nil, storageError("create task", err)
	}

	slog.InfoContext(ctx, "Task created", "user.id", userID, "task.id", task.ID)
	s.publish(ctx, events.TypeTaskCreated, task)
	return task, nil
}

// GetTask returns a task only if userID owns it.
func (s *taskService) GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	task, err := s.taskRepo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, storageError("get task", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if task.OwnerID != userID {
		slog.WarnContext(ctx, "Task access denied", "user.id", userID, "task.id", taskID)
		return nil, ErrForbidden
	}
	return task, nil
}

// UpdateTask changes the content of one of the user's tasks.
func (s *taskService) UpdateTask(ctx context.Context, userID, taskID int64, req *models.TaskRequest) (*models.Task, UpdateResult, error) {
	ctx, span := tracer.Start(ctx, "TaskService.UpdateTask", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("task.id", taskID),
	))
	defer span.End()

	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, TaskUnchanged, err
	}
	if err := validate(req); err != nil {
		return task, TaskUnchanged, err
	}
	if req.Content == task.Content {
		return task, TaskUnchanged, nil
	}

	if err := s.taskRepo.UpdateTaskContent(ctx, taskID, userID, req.Content); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, TaskUnchanged, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update task")
		return nil, TaskUnchanged, storageError("update task", err)
	}
	task.Content = req.Content

	slog.InfoContext(ctx, "Task updated", "user.id", userID, "task.id", taskID)
	s.publish(ctx, events.TypeTaskUpdated, task)
	return task, TaskUpdated, nil
}

// DeleteTask removes one of the user's tasks and returns it.
func (s *taskService) DeleteTask(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.DeleteTask", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("task.id", taskID),
	))
	defer span.End()

	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.DeleteTask(ctx, taskID, userID); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete task")
		return nil, storageError("delete task", err)
	}

	slog.InfoContext(ctx, "Task deleted", "user.id", userID, "task.id", taskID)
	s.publish(ctx, events.TypeTaskDeleted, task)
	return task, nil
}

// publish is best effort; a lost event only delays other tabs until reload.
func (s *taskService) publish(ctx context.Context, eventType string, task *models.Task) {
	if s.publisher == nil {
		return
	}
	e, err := events.NewTaskEvent(eventType, events.TaskChangedPayload{
		TaskID:  task.ID,
		OwnerID: task.OwnerID,
		Content: task.Content,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, e)
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish task event", "event.type", eventType, "task.id", task.ID, "error", err)
	}
}
