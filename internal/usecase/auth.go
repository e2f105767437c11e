package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/user-auth/internal/credential"
	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/email"
	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/ErlanBelekov/user-auth/internal/repository"
	"github.com/ErlanBelekov/user-auth/internal/token"
)

const (
	verifyEmailPath   = "/api/auth/verify-email"
	resetPasswordPath = "/api/auth/reset-password"
)

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token string
	User  *domain.User
}

// AuthUsecase runs the account lifecycle: registration, email verification, login and
// password recovery. Check-then-write sequences are not transactional; the unique index on
// users.email is the only guard against concurrent identical registrations.
type AuthUsecase struct {
	users         repository.UserRepository
	tokens        repository.TokenRepository
	issuer        *token.Issuer
	validator     *token.Validator
	sessions      *credential.SessionManager
	email         email.Sender
	publicBaseURL string
	logger        *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	sessions *credential.SessionManager,
	emailSender email.Sender,
	publicBaseURL string,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:         users,
		tokens:        tokens,
		issuer:        token.NewIssuer(),
		validator:     token.NewValidator(tokens),
		sessions:      sessions,
		email:         emailSender,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With("component", "auth"),
	}
}

// WithTokenSource replaces the issuer and validator, letting tests pin the clock.
func (u *AuthUsecase) WithTokenSource(issuer *token.Issuer, validator *token.Validator) *AuthUsecase {
	u.issuer = issuer
	u.validator = validator
	return u
}

// Register stores an unverified user and emails a verification link.
// If the email fails the user row stays; the caller can recover through ResendVerification.
func (u *AuthUsecase) Register(ctx context.Context, name, emailAddr, password string) (_ *domain.User, err error) {
	defer func() { observe("register", err) }()

	_, err = u.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateEmail
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := credential.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, name, emailAddr, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	if err = u.sendVerification(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the password before the verification flag, so an unverified user with a wrong
// password still gets ErrPasswordMismatch.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (_ *LoginResult, err error) {
	defer func() { observe("login", err) }()

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !credential.VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrPasswordMismatch
	}
	if !user.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	signed, err := u.sessions.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: signed, User: user}, nil
}

// CurrentUser loads the user a valid session token points at.
func (u *AuthUsecase) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// ResendVerification emails a fresh verification link. Earlier tokens stay valid until they
// expire or are consumed.
func (u *AuthUsecase) ResendVerification(ctx context.Context, emailAddr string) (_ *domain.User, err error) {
	defer func() { observe("resend_verification", err) }()

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFoundOrVerified
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.IsEmailVerified {
		return nil, domain.ErrUserNotFoundOrVerified
	}

	if err = u.sendVerification(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail consumes an email_verify token, marks its owner verified and signs them in.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, rawToken string) (_ string, err error) {
	defer func() { observe("verify_email", err) }()

	t, err := u.validator.Validate(ctx, rawToken, domain.PurposeEmailVerify)
	if err != nil {
		return "", err
	}

	user, err := u.users.FindByID(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrTokenNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if err = u.users.SetEmailVerified(ctx, user.ID); err != nil {
		return "", fmt.Errorf("mark email verified: %w", err)
	}
	if err = u.consume(ctx, t.TokenHash); err != nil {
		return "", err
	}
	u.logger.InfoContext(ctx, "email verified", "user_id", user.ID)

	return u.sessions.Issue(user.ID, user.Email)
}

// RequestPasswordReset emails a reset link when the address belongs to a user. Unknown
// addresses succeed silently so the response does not reveal which emails are registered.
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) (err error) {
	defer func() { observe("request_password_reset", err) }()

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			u.logger.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	issued, err := u.store(ctx, user.ID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	body, err := email.ResetPasswordEmail(user.Name, u.link(resetPasswordPath, issued.Raw))
	if err != nil {
		return err
	}
	return u.send(ctx, user.Email, email.SubjectReset, body, domain.PurposePasswordReset)
}

// ResetPassword consumes a password_reset token and replaces its owner's password.
// An invalid token leaves the stored hash untouched.
func (u *AuthUsecase) ResetPassword(ctx context.Context, rawToken, newPassword string) (err error) {
	defer func() { observe("reset_password", err) }()

	t, err := u.validator.Validate(ctx, rawToken, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	if err = u.setPassword(ctx, t.UserID, newPassword); err != nil {
		return err
	}
	if err = u.consume(ctx, t.TokenHash); err != nil {
		return err
	}
	u.logger.InfoContext(ctx, "password reset", "user_id", t.UserID)
	return nil
}

// ChangePassword replaces the password of an already authenticated user.
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID, newPassword string) (err error) {
	defer func() { observe("change_password", err) }()

	if err = u.setPassword(ctx, userID, newPassword); err != nil {
		return err
	}
	u.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

func (u *AuthUsecase) setPassword(ctx context.Context, userID, plain string) error {
	hash, err := credential.HashPassword(plain)
	if err != nil {
		return err
	}
	if err = u.users.SetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

func (u *AuthUsecase) sendVerification(ctx context.Context, user *domain.User) error {
	issued, err := u.store(ctx, user.ID, domain.PurposeEmailVerify)
	if err != nil {
		return err
	}

	body, err := email.VerificationEmail(user.Name, u.link(verifyEmailPath, issued.Raw))
	if err != nil {
		return err
	}
	return u.send(ctx, user.Email, email.SubjectVerify, body, domain.PurposeEmailVerify)
}

// consume deletes a validated token. If another request consumed it first the caller
// gets ErrTokenNotFound, so each token yields at most one successful response.
func (u *AuthUsecase) consume(ctx context.Context, tokenHash string) error {
	if err := u.tokens.Delete(ctx, tokenHash); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return domain.ErrTokenNotFound
		}
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// store issues a token and persists its hashed form.
func (u *AuthUsecase) store(ctx context.Context, userID string, purpose domain.TokenPurpose) (*token.Issued, error) {
	issued, err := u.issuer.Issue(userID, purpose)
	if err != nil {
		return nil, err
	}
	if err = u.tokens.Insert(ctx, issued.Record); err != nil {
		return nil, fmt.Errorf("store %s token: %w", purpose, err)
	}
	return issued, nil
}

func (u *AuthUsecase) send(ctx context.Context, to, subject, body string, purpose domain.TokenPurpose) error {
	if err := u.email.Send(ctx, to, subject, body); err != nil {
		metrics.EmailsSentTotal.WithLabelValues(string(purpose), "error").Inc()
		return fmt.Errorf("send %s email: %w", purpose, err)
	}
	metrics.EmailsSentTotal.WithLabelValues(string(purpose), "sent").Inc()
	return nil
}

func (u *AuthUsecase) link(path, rawToken string) string {
	return u.publicBaseURL + path + "?token=" + rawToken
}

func observe(flow string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindDependency)
		var de *domain.Error
		if errors.As(err, &de) {
			outcome = string(de.Kind)
		}
	}
	metrics.AuthFlowsTotal.WithLabelValues(flow, outcome).Inc()
}
