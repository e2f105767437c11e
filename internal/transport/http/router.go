package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/user-auth/internal/ratelimit"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

// emailScope is the rate-limit budget shared by every route that sends mail on request.
const emailScope = "email"

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, sessions middleware.SessionParser, emailLimiter ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithRequestID: false,
		Filters:       []sloggin.Filter{sloggin.IgnorePath("/favicon.ico")},
	}))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(sessions)
	emailLimit := middleware.RateLimit(emailLimiter, emailScope)

	auth := r.Group("/api/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/createuser", authHandler.CreateUser)
	auth.GET("/verify-email", authHandler.VerifyEmail)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.POST("/resend-email", emailLimit, authHandler.ResendEmail)
	auth.POST("/reset-password-token", emailLimit, authHandler.ResetPasswordToken)

	// Protected routes
	auth.GET("/verify-token", authMW, authHandler.VerifyToken)
	auth.POST("/change-password", authMW, authHandler.ChangePassword)

	return r
}
