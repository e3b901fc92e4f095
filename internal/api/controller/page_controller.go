package controller

import (
	"ctchen222/Todo-Tracker/internal/api/response"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// EventStream upgrades a request into a live feed of the user's task events.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64, sessionID string) error
}

// PageController serves the static pages and the task event socket.
type PageController struct {
	events EventStream
}

// NewPageController creates a new PageController.
func NewPageController(events EventStream) *PageController {
	return &PageController{events: events}
}

func (pc *PageController) About(c *gin.Context) {
	response.Render(c, http.StatusOK, "about.html", response.Page{Title: "About"})
}

// TaskEvents upgrades the connection to a websocket receiving the user's task
// events. The socket closes when the session it was opened under ends.
func (pc *PageController) TaskEvents(c *gin.Context) {
	user := response.CurrentUser(c)
	if err := pc.events.ServeWS(c.Writer, c.Request, user.ID, response.SessionID(c)); err != nil {
		slog.WarnContext(c.Request.Context(), "Failed to open task event stream", "user.id", user.ID, "error", err)
	}
}
