package auth

import (
	"net/http"
	"net/url"

	"hasker/backend/internal/models"
	"hasker/backend/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Context keys set by the middlewares in this package.
const (
	UserKey   = "user"
	UserIDKey = "userID"
)

const sessionUserKey = "user_id"

// LoadUser retrieves the user from the session cookie and stores it in the
// context.
func LoadUser(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(sessionUserKey).(uint); ok {
			if user, err := users.Get(id); err == nil {
				c.Set(UserKey, user)
				c.Set(UserIDKey, user.ID)
			}
		}
		c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, keeping the
// requested path in "next".
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			target := c.Request.URL.RequestURI()
			if c.Request.Method != http.MethodGet {
				target = c.Request.Referer()
				if u, err := url.Parse(target); err == nil {
					target = u.RequestURI()
				}
			}
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(SafeNext(target)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Login starts a session for user.
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		return err
	}
	c.Set(UserKey, user)
	c.Set(UserIDKey, user.ID)
	return nil
}

// Logout ends the session.
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// CurrentUser returns the logged-in page user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// UserID returns the authenticated user id from a session or a token.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// SafeNext keeps redirects on this site: only absolute paths are allowed.
func SafeNext(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return "/"
	}
	return next
}
