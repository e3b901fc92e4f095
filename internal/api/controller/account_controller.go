package controller

import (
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/api/response"
	"ctchen222/Todo-Tracker/internal/api/service"
	"ctchen222/Todo-Tracker/internal/session"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AccountController handles the account settings pages.
type AccountController struct {
	accountService service.AccountService
	sessions       service.SessionManager
	cookie         CookieConfig
}

// NewAccountController creates a new AccountController.
func NewAccountController(accountService service.AccountService, sessions service.SessionManager, cookie CookieConfig) *AccountController {
	return &AccountController{
		accountService: accountService,
		sessions:       sessions,
		cookie:         cookie,
	}
}

func (ac *AccountController) AccountPage(c *gin.Context) {
	user := response.CurrentUser(c)
	response.Render(c, http.StatusOK, "account.html", response.Page{
		Title: "Account Settings",
		Form:  models.UpdateUsernameRequest{Username: user.Username},
	})
}

// UpdateAccount renames the user.
func (ac *AccountController) UpdateAccount(c *gin.Context) {
	var req models.UpdateUsernameRequest
	if !bindForm(c, &req) {
		return
	}

	user := response.CurrentUser(c)
	changed, err := ac.accountService.UpdateUsername(c.Request.Context(), user, &req)
	if fields, ok := validationErrors(err); ok {
		response.Render(c, http.StatusOK, "account.html", response.Page{Title: "Account Settings", Form: req, Errors: fields})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	if !changed {
		response.Render(c, http.StatusOK, "account.html", response.Page{Title: "Account Settings", Form: req})
		return
	}
	response.Redirect(c, "/account", "success", "Username Updated Successfully")
}

func (ac *AccountController) ChangePasswordPage(c *gin.Context) {
	response.Render(c, http.StatusOK, "change_password.html", response.Page{Title: "Change Password"})
}

// ChangePassword replaces the password. Every other session of the user ends;
// this browser gets a fresh one.
func (ac *AccountController) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindForm(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user := response.CurrentUser(c)
	err := ac.accountService.ChangePassword(ctx, user, &req)
	if fields, ok := validationErrors(err); ok {
		response.Render(c, http.StatusOK, "change_password.html", response.Page{Title: "Change Password", Errors: fields})
		return
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Render(c, http.StatusOK, "change_password.html", response.Page{
			Title: "Change Password",
			Flash: &session.Flash{Category: "danger", Message: "Please Enter Correct Password"},
		})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	token, err := ac.sessions.Start(ctx, user.ID)
	if err != nil {
		session.ClearCookie(c)
		handleError(c, err)
		return
	}
	session.SetCookie(c, token, ac.cookie.TTL, ac.cookie.Secure)
	response.Redirect(c, "/account", "success", "Password Changed Successfully")
}
