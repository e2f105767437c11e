package credential

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the fixed validity window of a session token.
const SessionTTL = time.Hour

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionClaims struct {
	User sessionUser `json:"user"`
	jwt.RegisteredClaims
}

// SessionManager signs and parses HS256 session tokens with a process-wide secret.
type SessionManager struct {
	key []byte
	now func() time.Time
}

func NewSessionManager(key []byte) *SessionManager {
	return &SessionManager{key: key, now: time.Now}
}

func NewSessionManagerWithClock(key []byte, now func() time.Time) *SessionManager {
	return &SessionManager{key: key, now: now}
}

// Issue returns a signed token carrying {user:{id,email}} that expires after SessionTTL.
func (m *SessionManager) Issue(userID, email string) (string, error) {
	now := m.now()
	claims := sessionClaims{
		User: sessionUser{ID: userID, Email: email},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Parse checks signature and expiry. Every failure is domain.ErrInvalidSession so callers
// cannot tell a forged token from an expired one.
func (m *SessionManager) Parse(signed string) (*domain.SessionClaims, error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid || claims.User.ID == "" {
		return nil, domain.ErrInvalidSession
	}
	return &domain.SessionClaims{UserID: claims.User.ID, Email: claims.User.Email}, nil
}
