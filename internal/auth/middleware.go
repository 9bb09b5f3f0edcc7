package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CookieName = "hr_session"
	sessionKey = "session"
)

// RequireSession aborts with 401 unless the request carries a live session
// cookie. The session is stored on the gin context for handlers.
func RequireSession(store *SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		sess, ok := store.Get(id)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session set by RequireSession.
func CurrentSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	sess, ok := v.(Session)
	return sess, ok
}
