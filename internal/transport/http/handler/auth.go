package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/reqctx"
	"github.com/ErlanBelekov/user-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	msgLogin            = "Login successful"
	msgVerificationSent = "Verification email has been sent to your email. Please verify your email. If you don't receive the email, please check your spam folder. If you still can't find it, please contact us."
	msgEmailVerified    = "Email verified successfully!"
	msgResetRequested   = "If an account exists for this email, a password reset link has been sent. Please check your email and follow the link to reset your password."
	msgPasswordReset    = "Password reset successfully!"
	msgPasswordChanged  = "Password changed successfully!"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	ResendVerification(ctx context.Context, email string) (*domain.User, error)
	VerifyEmail(ctx context.Context, rawToken string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type createUserRequest struct {
	Name     string `json:"name"     binding:"required,min=3,max=100"`
	Email    string `json:"email"    binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type profileResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": msgLogin,
		"token":   res.Token,
		"user":    toUserResponse(res.User),
	})
}

// POST /createuser
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msgVerificationSent,
		"user":    toUserResponse(user),
	})
}

// GET /verify-token (authenticated)
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	userID := reqctx.UserID(c.Request.Context())

	user, err := h.authUsecase.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "verify token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": profileResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		IsEmailVerified: user.IsEmailVerified,
	}})
}

// GET /verify-email?token=<raw>
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	signed, err := h.authUsecase.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		writeError(c, h.logger, "verify email", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed, "message": msgEmailVerified})
}

// POST /resend-email
func (h *AuthHandler) ResendEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.authUsecase.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, "resend verification", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msgVerificationSent,
		"user":    toUserResponse(user),
	})
}

// POST /reset-password-token
// Returns the same 200 whether or not the email is registered.
func (h *AuthHandler) ResetPasswordToken(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.authUsecase.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, "request password reset", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgResetRequested})
}

// POST /reset-password?token=<raw>
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.authUsecase.ResetPassword(c.Request.Context(), c.Query("token"), req.Password); err != nil {
		writeError(c, h.logger, "reset password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgPasswordReset})
}

// POST /change-password (authenticated)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	userID := reqctx.UserID(c.Request.Context())
	if err := h.authUsecase.ChangePassword(c.Request.Context(), userID, req.Password); err != nil {
		writeError(c, h.logger, "change password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgPasswordChanged})
}
