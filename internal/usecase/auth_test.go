package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/credential"
	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/ErlanBelekov/user-auth/internal/token"
	"github.com/ErlanBelekov/user-auth/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ---- fakes ----

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int

	findErr   error
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}}
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) Create(_ context.Context, name, email, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	u := &domain.User{ID: fmt.Sprintf("user-%d", r.nextID), Name: name, Email: email, PasswordHash: passwordHash}
	r.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *memUsers) SetEmailVerified(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsEmailVerified = true
	return nil
}

func (r *memUsers) SetPassword(_ context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memUsers) get(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := r.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("user %s: %v", id, err)
	}
	return u
}

type memTokens struct {
	mu     sync.Mutex
	byHash map[string]*domain.OneTimeToken

	insertErr error
	// consumedElsewhere makes Find succeed but Delete report the row gone,
	// as when a concurrent request consumed the token in between.
	consumedElsewhere bool
}

func newMemTokens() *memTokens {
	return &memTokens{byHash: map[string]*domain.OneTimeToken{}}
}

func (r *memTokens) Insert(_ context.Context, t *domain.OneTimeToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *t
	r.byHash[t.TokenHash] = &cp
	return nil
}

func (r *memTokens) Find(_ context.Context, tokenHash string) (*domain.OneTimeToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTokens) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byHash[tokenHash]
	if !ok || r.consumedElsewhere {
		return domain.ErrTokenNotFound
	}
	delete(r.byHash, tokenHash)
	return nil
}

func (r *memTokens) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for h, t := range r.byHash {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}

func (r *memTokens) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}

type sentEmail struct {
	to, subject, body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{to, subject, body})
	return nil
}

func (s *fakeEmailSender) last(t *testing.T) sentEmail {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no email sent")
	}
	return s.sent[len(s.sent)-1]
}

// ---- helpers ----

const (
	testJWTKey  = "test-jwt-secret-at-least-32-chars!!"
	testBaseURL = "http://localhost:8080"
)

type env struct {
	users    *memUsers
	tokens   *memTokens
	sender   *fakeEmailSender
	sessions *credential.SessionManager
	uc       *usecase.AuthUsecase
}

func newEnv() *env {
	e := &env{
		users:    newMemUsers(),
		tokens:   newMemTokens(),
		sender:   &fakeEmailSender{},
		sessions: credential.NewSessionManager([]byte(testJWTKey)),
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	e.uc = usecase.NewAuthUsecase(e.users, e.tokens, e.sessions, e.sender, testBaseURL, logger)
	return e
}

// tokenFromBody extracts the raw token from the link embedded in an email body.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "?token=")
	if idx == -1 {
		t.Fatal("email body does not contain ?token=")
	}
	return strings.SplitN(body[idx+len("?token="):], `"`, 2)[0]
}

// seedUser inserts a user with a real bcrypt hash of password.
func (e *env) seedUser(t *testing.T, email, password string, verified bool) *domain.User {
	t.Helper()
	hash, err := credential.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	u, err := e.users.Create(context.Background(), "Alice", email, hash)
	if err != nil {
		t.Fatal(err)
	}
	if verified {
		if err := e.users.SetEmailVerified(context.Background(), u.ID); err != nil {
			t.Fatal(err)
		}
	}
	return u
}

// seedToken stores a token for userID and returns its raw form.
func (e *env) seedToken(t *testing.T, userID string, purpose domain.TokenPurpose, expiresAt time.Time) string {
	t.Helper()
	issued, err := token.NewIssuer().Issue(userID, purpose)
	if err != nil {
		t.Fatal(err)
	}
	issued.Record.ExpiresAt = expiresAt
	if err := e.tokens.Insert(context.Background(), issued.Record); err != nil {
		t.Fatal(err)
	}
	return issued.Raw
}

// ---- Register ----

func TestRegister_StoresUnverifiedUserAndEmailsLink(t *testing.T) {
	e := newEnv()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e.uc.WithTokenSource(
		token.NewIssuerWithClock(strings.NewReader(strings.Repeat("k", 64)), func() time.Time { return now }),
		token.NewValidatorWithClock(e.tokens, func() time.Time { return now }),
	)

	user, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.IsEmailVerified {
		t.Error("new user must be unverified")
	}
	if !credential.VerifyPassword("secret1", e.users.get(t, user.ID).PasswordHash) {
		t.Error("stored hash does not match password")
	}

	mail := e.sender.last(t)
	if mail.to != "a@x.com" || mail.subject != "Please verify your email" {
		t.Errorf("unexpected email %q / %q", mail.to, mail.subject)
	}
	if !strings.Contains(mail.body, testBaseURL+"/api/auth/verify-email?token=") {
		t.Errorf("body has no verify link: %s", mail.body)
	}

	raw := tokenFromBody(t, mail.body)
	stored, err := e.tokens.Find(context.Background(), token.Hash(raw))
	if err != nil {
		t.Fatalf("stored token not found by hash of emailed token: %v", err)
	}
	if stored.Purpose != domain.PurposeEmailVerify {
		t.Errorf("purpose = %q", stored.Purpose)
	}
	if !stored.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("expiresAt = %v, want now+15m", stored.ExpiresAt)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv()
	if _, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	_, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_LostRaceSurfacesAsDuplicate(t *testing.T) {
	e := newEnv()
	e.users.createErr = domain.ErrDuplicateEmail

	_, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestRegister_EmailFailureKeepsUser(t *testing.T) {
	e := newEnv()
	sendErr := errors.New("smtp unavailable")
	e.sender.err = sendErr

	_, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1")
	if !errors.Is(err, sendErr) {
		t.Fatalf("want wrapped sendErr, got %v", err)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		t.Errorf("mail failure must be a dependency error, got kind %s", de.Kind)
	}
	if _, err := e.users.FindByEmail(context.Background(), "a@x.com"); err != nil {
		t.Errorf("user row should survive a failed email: %v", err)
	}
}

func TestRegister_StoreError_Propagates(t *testing.T) {
	e := newEnv()
	repoErr := errors.New("db down")
	e.users.findErr = repoErr

	_, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1")
	if !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
}

// ---- Login ----

func TestLogin(t *testing.T) {
	e := newEnv()
	verified := e.seedUser(t, "v@x.com", "secret1", true)
	e.seedUser(t, "u@x.com", "secret1", false)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"unknown email", "nobody@x.com", "secret1", domain.ErrUserNotFound},
		{"wrong password", "v@x.com", "wrong-pass", domain.ErrPasswordMismatch},
		{"unverified", "u@x.com", "secret1", domain.ErrEmailNotVerified},
		{"unverified wrong password", "u@x.com", "wrong-pass", domain.ErrPasswordMismatch},
		{"ok", "v@x.com", "secret1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.uc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				if res != nil {
					t.Error("failed login must not return a session")
				}
				return
			}
			claims, err := e.sessions.Parse(res.Token)
			if err != nil {
				t.Fatalf("session token invalid: %v", err)
			}
			if claims.UserID != verified.ID || claims.Email != verified.Email {
				t.Errorf("claims = %+v", claims)
			}
			if res.User.Name != "Alice" {
				t.Errorf("user name = %q", res.User.Name)
			}
		})
	}
}

func TestLogin_RecordsOutcomeMetric(t *testing.T) {
	e := newEnv()
	counter := metrics.AuthFlowsTotal.WithLabelValues("login", "not_found")
	before := testutil.ToFloat64(counter)

	_, _ = e.uc.Login(context.Background(), "nobody@x.com", "secret1")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("login not_found delta = %v, want 1", got)
	}
}

// ---- VerifyEmail ----

func TestVerifyEmail_TwiceSecondIsNotFound(t *testing.T) {
	e := newEnv()
	user, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	raw := tokenFromBody(t, e.sender.last(t).body)

	signed, err := e.uc.VerifyEmail(context.Background(), raw)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if !e.users.get(t, user.ID).IsEmailVerified {
		t.Error("user should be verified")
	}
	claims, err := e.sessions.Parse(signed)
	if err != nil || claims.UserID != user.ID {
		t.Errorf("bad session token: %v %+v", err, claims)
	}

	if _, err := e.uc.VerifyEmail(context.Background(), raw); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("second verify: want ErrTokenNotFound, got %v", err)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", false)
	raw := e.seedToken(t, user.ID, domain.PurposeEmailVerify, time.Now().Add(-time.Second))

	if _, err := e.uc.VerifyEmail(context.Background(), raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	if e.users.get(t, user.ID).IsEmailVerified {
		t.Error("expired token must not verify the user")
	}
	// still expired, never valid, on a second attempt
	if _, err := e.uc.VerifyEmail(context.Background(), raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("want ErrTokenExpired again, got %v", err)
	}
}

func TestVerifyEmail_RejectsResetToken(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", false)
	raw := e.seedToken(t, user.ID, domain.PurposePasswordReset, time.Now().Add(time.Minute))

	if _, err := e.uc.VerifyEmail(context.Background(), raw); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("want ErrTokenNotFound, got %v", err)
	}
}

// ---- ResendVerification ----

func TestResendVerification_KeepsEarlierTokensValid(t *testing.T) {
	e := newEnv()
	if _, err := e.uc.Register(context.Background(), "Alice", "a@x.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	first := tokenFromBody(t, e.sender.last(t).body)

	if _, err := e.uc.ResendVerification(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	second := tokenFromBody(t, e.sender.last(t).body)
	if first == second {
		t.Fatal("resend must issue a new token")
	}
	if n := e.tokens.count(); n != 2 {
		t.Errorf("stored tokens = %d, want 2", n)
	}
	if _, err := e.uc.VerifyEmail(context.Background(), first); err != nil {
		t.Errorf("earlier token should still verify: %v", err)
	}
}

func TestResendVerification_NotFoundOrVerified(t *testing.T) {
	e := newEnv()
	e.seedUser(t, "v@x.com", "secret1", true)

	for _, addr := range []string{"nobody@x.com", "v@x.com"} {
		if _, err := e.uc.ResendVerification(context.Background(), addr); !errors.Is(err, domain.ErrUserNotFoundOrVerified) {
			t.Errorf("%s: want ErrUserNotFoundOrVerified, got %v", addr, err)
		}
	}
	if len(e.sender.sent) != 0 {
		t.Error("no email should be sent")
	}
}

// ---- Password reset ----

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	e := newEnv()

	if err := e.uc.RequestPasswordReset(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.sender.sent) != 0 || e.tokens.count() != 0 {
		t.Error("unknown email must not issue a token or send mail")
	}
}

func TestRequestPasswordReset_StoreError_Propagates(t *testing.T) {
	e := newEnv()
	e.seedUser(t, "a@x.com", "secret1", true)
	repoErr := errors.New("db down")
	e.tokens.insertErr = repoErr

	if err := e.uc.RequestPasswordReset(context.Background(), "a@x.com"); !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
}

func TestResetPassword_RoundTrip(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", true)

	if err := e.uc.RequestPasswordReset(context.Background(), "a@x.com"); err != nil {
		t.Fatal(err)
	}
	mail := e.sender.last(t)
	if mail.subject != "Reset your password" || !strings.Contains(mail.body, testBaseURL+"/api/auth/reset-password?token=") {
		t.Fatalf("unexpected reset email: %+v", mail)
	}
	raw := tokenFromBody(t, mail.body)

	if err := e.uc.ResetPassword(context.Background(), raw, "newsecret"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !credential.VerifyPassword("newsecret", e.users.get(t, user.ID).PasswordHash) {
		t.Error("password was not replaced")
	}
	if err := e.uc.ResetPassword(context.Background(), raw, "another1"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("reused token: want ErrTokenNotFound, got %v", err)
	}
}

func TestResetPassword_ExpiredLeavesPasswordUnchanged(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", true)
	before := e.users.get(t, user.ID).PasswordHash
	raw := e.seedToken(t, user.ID, domain.PurposePasswordReset, time.Now().Add(-time.Second))

	if err := e.uc.ResetPassword(context.Background(), raw, "newsecret"); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	if e.users.get(t, user.ID).PasswordHash != before {
		t.Error("password changed despite expired token")
	}
}

func TestResetPassword_UnknownToken(t *testing.T) {
	e := newEnv()
	if err := e.uc.ResetPassword(context.Background(), strings.Repeat("ab", 32), "newsecret"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("want ErrTokenNotFound, got %v", err)
	}
}

// ---- ChangePassword / CurrentUser ----

func TestChangePassword(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", true)

	if err := e.uc.ChangePassword(context.Background(), user.ID, "changed1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !credential.VerifyPassword("changed1", e.users.get(t, user.ID).PasswordHash) {
		t.Error("password was not replaced")
	}
	if err := e.uc.ChangePassword(context.Background(), "ghost", "changed1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", true)

	got, err := e.uc.CurrentUser(context.Background(), user.ID)
	if err != nil || got.Email != "a@x.com" {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := e.uc.CurrentUser(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

func TestResetPassword_ConcurrentConsumerLoses(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", true)
	raw := e.seedToken(t, user.ID, domain.PurposePasswordReset, time.Now().Add(time.Minute))
	e.tokens.consumedElsewhere = true

	if err := e.uc.ResetPassword(context.Background(), raw, "newsecret"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("want ErrTokenNotFound, got %v", err)
	}
}

func TestVerifyEmail_ConcurrentConsumerLoses(t *testing.T) {
	e := newEnv()
	user := e.seedUser(t, "a@x.com", "secret1", false)
	raw := e.seedToken(t, user.ID, domain.PurposeEmailVerify, time.Now().Add(time.Minute))
	e.tokens.consumedElsewhere = true

	signed, err := e.uc.VerifyEmail(context.Background(), raw)
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("want ErrTokenNotFound, got %v", err)
	}
	if signed != "" {
		t.Error("losing consumer must not get a session")
	}
}
