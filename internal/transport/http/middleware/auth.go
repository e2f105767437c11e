package middleware

import (
	"net/http"
	"strings"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/reqctx"
	"github.com/gin-gonic/gin"
)

// SessionParser is satisfied by *credential.SessionManager.
type SessionParser interface {
	Parse(signed string) (*domain.SessionClaims, error)
}

// Auth validates a Bearer session token and puts the user ID on the request context,
// where handlers and log lines read it.
func Auth(sessions SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, http.StatusUnauthorized, domain.ErrInvalidSession)
			return
		}

		claims, err := sessions.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.UserID == "" {
			abort(c, http.StatusUnauthorized, domain.ErrInvalidSession)
			return
		}

		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}
