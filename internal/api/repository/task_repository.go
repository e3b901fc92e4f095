package repository

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/models"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoRows is returned by writes that matched nothing.
var ErrNoRows = errors.New("no matching row")

//go:generate mockgen -source=task_repository.go -destination=../../mocks/task_repository_mock.go -package=mocks

// TaskRepository defines the interface for task data operations.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id int64) (*models.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID int64) ([]models.Task, error)
	UpdateTaskContent(ctx context.Context, id, ownerID int64, content string) error
	DeleteTask(ctx context.Context, id, ownerID int64) error
}

type sqlTaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new sqlx-based TaskRepository.
func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &sqlTaskRepository{db: db}
}

// CreateTask inserts a task and sets task.ID.
func (r *sqlTaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.CreateTask", trace.WithAttributes(
		attribute.Int64("user.id", task.OwnerID),
	))
	defer span.End()

	query := r.db.Rebind(`INSERT INTO tasks (content, owner_id) VALUES (?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, task.Content, task.OwnerID).Scan(&task.ID); err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to create task: %w", err)
	}
	span.SetAttributes(attribute.Int64("task.id", task.ID))
	return nil
}

// GetTaskByID returns nil, nil when no task has the given id.
func (r *sqlTaskRepository) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.GetTaskByID", trace.WithAttributes(
		attribute.Int64("task.id", id),
	))
	defer span.End()

	var task models.Task
	query := r.db.Rebind(`SELECT id, content, owner_id FROM tasks WHERE id = ?`)
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		recordError(span, err)
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListTasksByOwner returns the owner's tasks in creation order.
func (r *sqlTaskRepository) ListTasksByOwner(ctx context.Context, ownerID int64) ([]models.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.ListTasksByOwner", trace.WithAttributes(
		attribute.Int64("user.id", ownerID),
	))
	defer span.End()

	tasks := []models.Task{}
	query := r.db.Rebind(`SELECT id, content, owner_id FROM tasks WHERE owner_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &tasks, query, ownerID); err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// UpdateTaskContent changes the content of a task owned by ownerID.
// It returns ErrNoRows when no such task exists for that owner.
func (r *sqlTaskRepository) UpdateTaskContent(ctx context.Context, id, ownerID int64, content string) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.UpdateTaskContent", trace.WithAttributes(
		attribute.Int64("task.id", id),
		attribute.Int64("user.id", ownerID),
	))
	defer span.End()

	query := r.db.Rebind(`UPDATE tasks SET content = ? WHERE id = ? AND owner_id = ?`)
	res, err := r.db.ExecContext(ctx, query, content, id, ownerID)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to update task: %w", err)
	}
	return expectOneRow(res, "task")
}

// DeleteTask removes a task owned by ownerID.
// It returns ErrNoRows when no such task exists for that owner.
func (r *sqlTaskRepository) DeleteTask(ctx context.Context, id, ownerID int64) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.DeleteTask", trace.WithAttributes(
		attribute.Int64("task.id", id),
		attribute.Int64("user.id", ownerID),
	))
	defer span.End()

	query := r.db.Rebind(`DELETE FROM tasks WHERE id = ? AND owner_id = ?`)
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectOneRow(res, "task")
}

func expectOneRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNoRows)
	}
	return nil
}
