package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mappasalud/citas-api/internal/model"
	"github.com/mappasalud/citas-api/internal/repository"
)

const ContextSession = "session"

// Session resolves the session cookie against the session store and
// attaches the result to the request context. A missing or unknown
// cookie leaves the request unauthenticated; store failures are logged
// and treated the same, so a session-store outage degrades to 401s
// instead of 500s.
func Session(store repository.SessionStore, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err == nil && token != "" {
			sess, err := store.Get(c.Request.Context(), token)
			if err != nil {
				log.Warn().Err(err).Msg("failed to resolve session")
			} else if sess != nil {
				c.Set(ContextSession, sess)
			}
		}
		c.Next()
	}
}

// SessionFromContext returns the resolved session, or nil when the
// caller is unauthenticated.
func SessionFromContext(c *gin.Context) *model.Session {
	if v, exists := c.Get(ContextSession); exists {
		if sess, ok := v.(*model.Session); ok {
			return sess
		}
	}
	return nil
}
