package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/ratelimit"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(time.Minute, 2)
	r := gin.New()
	r.POST("/a", middleware.RateLimit(limiter, "email"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/b", middleware.RateLimit(limiter, "email"), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(path, ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("/a", "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("1st: %d", code)
	}
	if code := send("/b", "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("2nd: %d", code)
	}
	// routes in one scope share the budget
	if code := send("/a", "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("3rd: got %d, want 429", code)
	}
	if code := send("/a", "10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client: got %d, want 200", code)
	}
}
