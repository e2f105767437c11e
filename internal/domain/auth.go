package domain

import (
	"time"
)

type TokenPurpose string

const (
	PurposeEmailVerify   TokenPurpose = "email_verify"
	PurposePasswordReset TokenPurpose = "password_reset"
)

type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string // never serialized to callers
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OneTimeToken is a stored email-verification or password-reset token.
// TokenHash is the SHA-256 hex digest of the raw token; the raw value is only emailed.
type OneTimeToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	Purpose   TokenPurpose
	CreatedAt time.Time
}

// Valid reports whether the token may still be used at now. A token is valid up to and
// including its expiry instant.
func (t *OneTimeToken) Valid(now time.Time) bool {
	return !now.After(t.ExpiresAt)
}

// SessionClaims is the identity carried by a signed session token.
type SessionClaims struct {
	UserID string
	Email  string
}
