package controller

import (
	"ctchen222/Todo-Tracker/internal/api/response"
	"ctchen222/Todo-Tracker/internal/api/service"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the session cookie handed out on login.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// handleError renders the page matching a service error that the handler
// cannot recover from.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.ErrorPage(c, http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.ErrorPage(c, http.StatusForbidden)
	default:
		slog.ErrorContext(c.Request.Context(), "Request failed", "http.route", c.FullPath(), "error", err)
		_ = c.Error(err)
		response.ErrorPage(c, http.StatusInternalServerError)
	}
}

// validationErrors returns the per-field messages carried by err, if any.
func validationErrors(err error) (map[string]string, bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

// bindForm decodes the submitted form into req. It renders 400 and returns
// false when the body cannot be decoded.
func bindForm(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		slog.WarnContext(c.Request.Context(), "Failed to bind form", "http.route", c.FullPath(), "error", err)
		c.AbortWithStatus(http.StatusBadRequest)
		return false
	}
	return true
}

// taskID parses the task id path parameter. Anything but a positive integer
// is treated as a missing page.
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("task_id"), 10, 64)
	if err != nil || id <= 0 {
		response.ErrorPage(c, http.StatusNotFound)
		return 0, false
	}
	return id, true
}
