package controller

import (
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/response"
	"ctchen222/Todo-Tracker/internal/api/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TaskController handles the task pages of the logged in user.
type TaskController struct {
	taskService service.TaskService
}

// NewTaskController creates a new TaskController.
func NewTaskController(taskService service.TaskService) *TaskController {
	return &TaskController{taskService: taskService}
}

// AllTasks lists the user's tasks.
func (tc *TaskController) AllTasks(c *gin.Context) {
	user := response.CurrentUser(c)
	tasks, err := tc.taskService.ListTasks(c.Request.Context(), user.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Render(c, http.StatusOK, "all_tasks.html", response.Page{Title: "All Tasks", Data: tasks})
}

func (tc *TaskController) AddTaskPage(c *gin.Context) {
	response.Render(c, http.StatusOK, "add_task.html", response.Page{Title: "Add Task", Form: models.TaskRequest{}})
}

// AddTask creates a task and returns to an empty form.
func (tc *TaskController) AddTask(c *gin.Context) {
	var req models.TaskRequest
	if !bindForm(c, &req) {
		return
	}

	user := response.CurrentUser(c)
	_, err := tc.taskService.CreateTask(c.Request.Context(), user.ID, &req)
	if fields, ok := validationErrors(err); ok {
		response.Render(c, http.StatusOK, "add_task.html", response.Page{Title: "Add Task", Form: req, Errors: fields})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	response.Redirect(c, "/add_task", "success", "Task Created")
}

// UpdateTaskPage shows the edit form prefilled with the task content.
func (tc *TaskController) UpdateTaskPage(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	user := response.CurrentUser(c)
	task, err := tc.taskService.GetTask(c.Request.Context(), user.ID, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Render(c, http.StatusOK, "add_task.html", response.Page{
		Title: "Update Task",
		Form:  models.TaskRequest{Content: task.Content},
	})
}

func (tc *TaskController) UpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req models.TaskRequest
	if !bindForm(c, &req) {
		return
	}

	user := response.CurrentUser(c)
	_, result, err := tc.taskService.UpdateTask(c.Request.Context(), user.ID, id, &req)
	if fields, ok := validationErrors(err); ok {
		response.Render(c, http.StatusOK, "add_task.html", response.Page{Title: "Update Task", Form: req, Errors: fields})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	if result == service.TaskUnchanged {
		response.Redirect(c, "/all_tasks", "warning", "No Changes Made")
		return
	}
	response.Redirect(c, "/all_tasks", "success", "Task Updated")
}

func (tc *TaskController) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	user := response.CurrentUser(c)
	if _, err := tc.taskService.DeleteTask(c.Request.Context(), user.ID, id); err != nil {
		handleError(c, err)
		return
	}
	response.Redirect(c, "/all_tasks", "info", "Task Deleted")
}
