package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/ErlanBelekov/user-auth/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit caps requests per client IP. Routes sharing a scope share one budget.
func RateLimit(limiter ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP()) {
			metrics.RateLimitedTotal.WithLabelValues(c.FullPath()).Inc()
			abort(c, http.StatusTooManyRequests, domain.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
