package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/jackc/pgx/v5"
)

type TokenRepository struct {
	db DB
}

func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Insert(ctx context.Context, t *domain.OneTimeToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_verification_tokens (token_hash, user_id, expires_at, type)
		VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.UserID, t.ExpiresAt, string(t.Purpose),
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Find(ctx context.Context, tokenHash string) (*domain.OneTimeToken, error) {
	query := `
		SELECT token_hash, user_id, expires_at, type, created_at
		FROM email_verification_tokens
		WHERE token_hash = $1`

	var (
		t       domain.OneTimeToken
		purpose string
	)
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &purpose, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	t.Purpose = domain.TokenPurpose(purpose)
	return &t, nil
}

func (r *TokenRepository) Delete(ctx context.Context, tokenHash string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM email_verification_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM email_verification_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
