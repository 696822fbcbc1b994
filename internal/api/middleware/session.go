package middleware

import (
	"net/http"

	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie is the name of the session identifier cookie.
	SessionCookie = "easyswan_session"

	// SessionKey is the gin context key the session is stored under.
	SessionKey = "session"
)

// Sessions middleware resolves the caller's session from the session
// cookie, creating a fresh anonymous session (and setting the cookie)
// when none exists or the referenced session has expired.
func Sessions(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session

		if id, err := c.Cookie(SessionCookie); err == nil {
			sess = manager.Get(id)
		}
		if sess == nil {
			sess = manager.Create()
			c.SetCookie(SessionCookie, sess.ID, 0, "/", "", false, true)
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// RequireAuth middleware rejects requests whose session has not
// completed both authentication factors.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "No session",
			})
			c.Abort()
			return
		}

		sess.Lock()
		authenticated := sess.Authenticated
		sess.Unlock()

		if !authenticated {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Login required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetSession returns the session attached by the Sessions middleware,
// or nil when the middleware did not run.
func GetSession(c *gin.Context) *session.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	sess, ok := v.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}
