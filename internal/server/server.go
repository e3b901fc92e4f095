package server

import (
	"ctchen222/Todo-Tracker/internal/api/controller"
	"ctchen222/Todo-Tracker/internal/api/middleware"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"ctchen222/Todo-Tracker/internal/api/response"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Controllers bundles the handlers mounted by the route table.
type Controllers struct {
	Auth    *controller.AuthController
	Tasks   *controller.TaskController
	Account *controller.AccountController
	Pages   *controller.PageController
}

type Server struct {
	engine *gin.Engine
}

// NewServer builds the gin engine: middleware, templates and routes.
func NewServer(sessions middleware.SessionResolver, users repository.UserRepository, ctrls Controllers) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	telemetry, err := middleware.Telemetry()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			slog.ErrorContext(c.Request.Context(), "Recovered from panic", "http.route", c.FullPath(), "panic", recovered)
			response.ErrorPage(c, http.StatusInternalServerError)
		}),
		telemetry,
		middleware.LoadUser(sessions, users),
	)
	r.NoRoute(func(c *gin.Context) {
		response.ErrorPage(c, http.StatusNotFound)
	})

	s := &Server{engine: r}
	s.registerRoutes(ctrls)
	return s, nil
}

func (s *Server) registerRoutes(ctrls Controllers) {
	r := s.engine

	r.GET("/", ctrls.Pages.About)
	r.GET("/about", ctrls.Pages.About)
	r.GET("/logout", ctrls.Auth.Logout)

	anonymous := r.Group("/", middleware.RequireAnonymous())
	{
		anonymous.GET("/register", ctrls.Auth.RegisterPage)
		anonymous.POST("/register", ctrls.Auth.Register)
		anonymous.GET("/login", ctrls.Auth.LoginPage)
		anonymous.POST("/login", ctrls.Auth.Login)
	}

	authed := r.Group("/", middleware.RequireUser())
	{
		authed.GET("/all_tasks", ctrls.Tasks.AllTasks)
		authed.GET("/add_task", ctrls.Tasks.AddTaskPage)
		authed.POST("/add_task", ctrls.Tasks.AddTask)
		authed.GET("/all_tasks/:task_id/update_task", ctrls.Tasks.UpdateTaskPage)
		authed.POST("/all_tasks/:task_id/update_task", ctrls.Tasks.UpdateTask)
		authed.GET("/all_tasks/:task_id/delete_task", ctrls.Tasks.DeleteTask)

		authed.GET("/account", ctrls.Account.AccountPage)
		authed.POST("/account", ctrls.Account.UpdateAccount)
		authed.GET("/account/change_password", ctrls.Account.ChangePasswordPage)
		authed.POST("/account/change_password", ctrls.Account.ChangePassword)

		authed.GET("/ws/tasks", ctrls.Pages.TaskEvents)
	}
}

// Engine returns the HTTP handler serving every route.
func (s *Server) Engine() http.Handler {
	return s.engine
}
