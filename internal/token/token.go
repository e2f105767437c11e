// Package token mints and validates one-time email tokens.
//
// A raw token is 32 bytes from crypto/rand, hex encoded. Only its SHA-256 digest is stored,
// so lookups always go through Hash.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
)

const (
	// TTL is fixed for every purpose.
	TTL = 15 * time.Minute

	rawBytes = 32
)

// Issued is a freshly minted token. Raw goes into the email link, Record into the store.
type Issued struct {
	Raw    string
	Record *domain.OneTimeToken
}

type Issuer struct {
	rand io.Reader
	now  func() time.Time
}

func NewIssuer() *Issuer {
	return &Issuer{rand: rand.Reader, now: time.Now}
}

// NewIssuerWithClock lets tests pin the clock and the entropy source.
func NewIssuerWithClock(r io.Reader, now func() time.Time) *Issuer {
	return &Issuer{rand: r, now: now}
}

// Issue builds a token owned by userID. It has no side effects; the caller persists Record.
func (i *Issuer) Issue(userID string, purpose domain.TokenPurpose) (*Issued, error) {
	raw := make([]byte, rawBytes)
	if _, err := io.ReadFull(i.rand, raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)

	return &Issued{
		Raw: rawToken,
		Record: &domain.OneTimeToken{
			TokenHash: Hash(rawToken),
			UserID:    userID,
			ExpiresAt: i.now().Add(TTL),
			Purpose:   purpose,
		},
	}, nil
}

// Hash returns the stored lookup key for a raw token.
func Hash(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
