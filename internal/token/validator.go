package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
)

// Finder is the read side of repository.TokenRepository.
type Finder interface {
	Find(ctx context.Context, tokenHash string) (*domain.OneTimeToken, error)
}

// Validator checks presented tokens. It never mutates the store: consuming a token is the
// caller's job once the terminal action has succeeded.
type Validator struct {
	tokens Finder
	now    func() time.Time
}

func NewValidator(tokens Finder) *Validator {
	return &Validator{tokens: tokens, now: time.Now}
}

func NewValidatorWithClock(tokens Finder, now func() time.Time) *Validator {
	return &Validator{tokens: tokens, now: now}
}

// Validate returns the stored token for rawToken if it exists, carries the expected purpose,
// and has not expired. It fails with domain.ErrTokenNotFound or domain.ErrTokenExpired.
func (v *Validator) Validate(ctx context.Context, rawToken string, purpose domain.TokenPurpose) (*domain.OneTimeToken, error) {
	if rawToken == "" {
		return nil, domain.ErrTokenNotFound
	}

	t, err := v.tokens.Find(ctx, Hash(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	// a reset token must not verify an email and vice versa
	if t.Purpose != purpose {
		return nil, domain.ErrTokenNotFound
	}

	if !t.Valid(v.now()) {
		return nil, domain.ErrTokenExpired
	}
	return t, nil
}
