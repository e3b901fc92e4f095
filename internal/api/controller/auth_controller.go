package controller

import (
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/response"
	"ctchen222/Todo-Tracker/internal/api/service"
	"ctchen222/Todo-Tracker/internal/session"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	authService service.AuthService
	cookie      CookieConfig
}

// NewAuthController creates a new AuthController.
func NewAuthController(authService service.AuthService, cookie CookieConfig) *AuthController {
	return &AuthController{
		authService: authService,
		cookie:      cookie,
	}
}

func (ac *AuthController) RegisterPage(c *gin.Context) {
	response.Render(c, http.StatusOK, "register.html", response.Page{Title: "Register", Form: models.RegisterRequest{}})
}

// Register creates the account and sends the browser to the login page.
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindForm(c, &req) {
		return
	}

	user, err := ac.authService.Register(c.Request.Context(), &req)
	if fields, ok := validationErrors(err); ok {
		req.Password, req.ConfirmPassword = "", ""
		response.Render(c, http.StatusOK, "register.html", response.Page{Title: "Register", Form: req, Errors: fields})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	response.Redirect(c, "/login", "success", fmt.Sprintf("Account Created For %s", user.Username))
}

func (ac *AuthController) LoginPage(c *gin.Context) {
	response.Render(c, http.StatusOK, "login.html", response.Page{Title: "Login", Form: models.LoginRequest{}})
}

// Login checks the credentials and sets the session cookie.
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindForm(c, &req) {
		return
	}

	_, token, err := ac.authService.Login(c.Request.Context(), &req)
	req.Password = ""
	if fields, ok := validationErrors(err); ok {
		response.Render(c, http.StatusOK, "login.html", response.Page{Title: "Login", Form: req, Errors: fields})
		return
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Render(c, http.StatusOK, "login.html", response.Page{
			Title: "Login",
			Form:  req,
			Flash: &session.Flash{Category: "danger", Message: "Login Unsuccessful. Please check Username Or Password"},
		})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	session.SetCookie(c, token, ac.cookie.TTL, ac.cookie.Secure)
	response.Redirect(c, "/all_tasks", "success", "Login Successful")
}

// Logout ends the browser's session. It never fails from the user's point of view.
func (ac *AuthController) Logout(c *gin.Context) {
	if token := session.TokenFromRequest(c); token != "" {
		if err := ac.authService.Logout(c.Request.Context(), token); err != nil {
			slog.ErrorContext(c.Request.Context(), "Failed to end session on logout", "error", err)
		}
	}
	session.ClearCookie(c)
	c.Redirect(http.StatusFound, "/login")
}
