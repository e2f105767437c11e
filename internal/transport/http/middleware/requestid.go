package middleware

import (
	"github.com/ErlanBelekov/user-auth/internal/reqctx"
	"github.com/gin-gonic/gin"
)

// maxRequestIDLen bounds client-supplied IDs before they reach the logs.
const maxRequestIDLen = 128

// RequestID injects a request ID into the context and response header.
// If the incoming request already carries X-Request-ID, it is preserved;
// otherwise a new UUID v4 is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(reqctx.HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = reqctx.NewRequestID()
		}

		ctx := reqctx.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(reqctx.HeaderRequestID, id)
		c.Next()
	}
}
