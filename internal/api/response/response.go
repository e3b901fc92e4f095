package response

import (
	"ctchen222/Todo-Tracker/internal/api/models"
	"ctchen222/Todo-Tracker/internal/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	userKey      = "currentUser"
	sessionIDKey = "sessionID"
)

// Page is the data handed to every template.
type Page struct {
	Title  string
	User   *models.User
	Flash  *session.Flash
	Errors map[string]string
	Form   any
	Data   any
}

// SetUser records the logged in user for the rest of the request.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the logged in user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SetSessionID records the id of the session the request was made under.
func SetSessionID(c *gin.Context, id string) {
	c.Set(sessionIDKey, id)
}

// SessionID returns the id of the request's session, or "" for anonymous requests.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// Render writes the named template with the current user and pending flash.
func Render(c *gin.Context, code int, name string, page Page) {
	page.User = CurrentUser(c)
	if page.Flash == nil {
		page.Flash = session.PopFlash(c)
	}
	c.HTML(code, name, page)
}

// Redirect sends the browser to location, queueing a flash message when one is given.
func Redirect(c *gin.Context, location, category, message string) {
	if message != "" {
		session.SetFlash(c, category, message)
	}
	c.Redirect(http.StatusFound, location)
}

// ErrorPage renders the page for an HTTP error status and stops the handler chain.
func ErrorPage(c *gin.Context, code int) {
	name := "500.html"
	title := "Something went wrong"
	switch code {
	case http.StatusForbidden:
		name, title = "403.html", "Forbidden"
	case http.StatusNotFound:
		name, title = "404.html", "Page Not Found"
	}
	Render(c, code, name, Page{Title: title})
	c.Abort()
}
