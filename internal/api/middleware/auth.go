package middleware

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"ctchen222/Todo-Tracker/internal/api/response"
	"ctchen222/Todo-Tracker/internal/session"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const loginMessage = "Please log in to access this page."

// SessionResolver maps a session token to its live session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*session.Session, error)
}

// LoadUser resolves the session cookie into the current user. Requests with a
// stale or forged cookie continue anonymously and lose the cookie.
func LoadUser(sessions SessionResolver, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		sess, err := sessions.ResolveSession(ctx, token)
		if errors.Is(err, session.ErrNoSession) {
			session.ClearCookie(c)
			c.Next()
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to resolve session", "error", err)
			response.ErrorPage(c, http.StatusInternalServerError)
			return
		}

		user, err := users.GetUserByID(ctx, sess.UserID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load session user", "user.id", sess.UserID, "error", err)
			response.ErrorPage(c, http.StatusInternalServerError)
			return
		}
		if user == nil {
			session.ClearCookie(c)
			c.Next()
			return
		}

		response.SetUser(c, user)
		response.SetSessionID(c, sess.ID)
		c.Next()
	}
}

// RequireUser sends anonymous requests to the login page.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if response.CurrentUser(c) == nil {
			response.Redirect(c, "/login", "danger", loginMessage)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAnonymous sends logged in users to their task list.
func RequireAnonymous() gin.HandlerFunc {
	return func(c *gin.Context) {
		if response.CurrentUser(c) != nil {
			c.Redirect(http.StatusFound, "/all_tasks")
			c.Abort()
			return
		}
		c.Next()
	}
}
