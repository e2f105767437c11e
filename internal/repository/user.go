package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
)

// UserRepository is the user half of the credential store.
// Lookups return domain.ErrUserNotFound when no row matches.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create fails with domain.ErrDuplicateEmail when the unique constraint on email trips.
	Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
	SetPassword(ctx context.Context, userID, passwordHash string) error
}

// TokenRepository stores one-time tokens keyed by the SHA-256 digest of the raw token.
type TokenRepository interface {
	Insert(ctx context.Context, token *domain.OneTimeToken) error
	// Find returns domain.ErrTokenNotFound when no row matches. Expired rows are returned as-is.
	Find(ctx context.Context, tokenHash string) (*domain.OneTimeToken, error)
	// Delete consumes a token. It returns domain.ErrTokenNotFound when no row was removed,
	// so of two concurrent consumers only one succeeds.
	Delete(ctx context.Context, tokenHash string) error
	// DeleteExpired removes tokens that expired before cutoff and returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
