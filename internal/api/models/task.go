package models

// Task is a short piece of text owned by exactly one user.
type Task struct {
	ID      int64  `db:"id"`
	Content string `db:"content"`
	OwnerID int64  `db:"owner_id"`
}

// TaskRequest is submitted by both the add and the update task forms.
type TaskRequest struct {
	Content string `form:"task_name" validate:"required,min=2,max=30"`
}
