package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskdeck/domain"
)

type stubAuth struct {
	resp  domain.LoginResponse
	err   error
	calls int
	creds domain.Credentials
}

func (s *stubAuth) Login(ctx context.Context, creds domain.Credentials) (domain.LoginResponse, error) {
	s.calls++
	s.creds = creds
	return s.resp, s.err
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestLoginTokenRoleWins(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":  "ada@example.com",
		"role": "EMPLOYEE",
		"exp":  exp.Unix(),
	})
	auth := &stubAuth{resp: domain.LoginResponse{JWT: token, UserID: 42, UserRole: "ADMIN"}}

	id, err := Login(context.Background(), auth, nil, " ada@example.com ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if auth.creds.Email != "ada@example.com" {
		t.Fatalf("expected trimmed email, got %q", auth.creds.Email)
	}
	if id.UserID != 42 || id.Role != domain.RoleContributor || id.Email != "ada@example.com" {
		t.Fatalf("unexpected identity: %#v", id)
	}
	if !id.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected expiry: %v", id.ExpiresAt)
	}
}

func TestLoginFallsBackToResponseRole(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{"sub": "root@example.com"})
	auth := &stubAuth{resp: domain.LoginResponse{JWT: token, UserID: 1, UserRole: "ADMIN"}}

	id, err := Login(context.Background(), auth, nil, "root@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !id.IsAdmin() {
		t.Fatalf("expected admin identity, got %#v", id)
	}
}

func TestLoginRejectsMissingCredentialsWithoutCall(t *testing.T) {
	auth := &stubAuth{}
	_, err := Login(context.Background(), auth, nil, "", "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected validation error, got %v", err)
	}
	if auth.calls != 0 {
		t.Fatalf("expected no login call, got %d", auth.calls)
	}
}

func TestLoginPropagatesServiceError(t *testing.T) {
	auth := &stubAuth{err: &domain.AuthorizationError{Status: 401, Message: "bad credentials"}}
	if _, err := Login(context.Background(), auth, nil, "a@b.c", "x"); !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestVerifierSharedSecret(t *testing.T) {
	v, err := NewVerifier("", "s3cret")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	good := signToken(t, "s3cret", jwt.MapClaims{"sub": "a@b.c", "role": "ROLE_ADMIN", "userId": 7, "exp": time.Now().Add(time.Minute).Unix()})
	claims, err := v.Claims(good)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if claims.Role != domain.RoleAdmin || claims.UserID != 7 {
		t.Fatalf("unexpected claims: %#v", claims)
	}

	forged := signToken(t, "other", jwt.MapClaims{"sub": "a@b.c", "role": "ADMIN"})
	if _, err := v.Claims(forged); err == nil {
		t.Fatalf("expected signature error")
	}

	expired := signToken(t, "s3cret", jwt.MapClaims{"sub": "a@b.c", "exp": time.Now().Add(-time.Minute).Unix()})
	if _, err := v.Claims(expired); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifierUnverifiedRequiresSubject(t *testing.T) {
	v, _ := NewVerifier("", "")
	token := signToken(t, "whatever", jwt.MapClaims{"role": "ADMIN"})
	if _, err := v.Claims(token); err == nil {
		t.Fatalf("expected missing sub error")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewStore(path)
	want := Identity{UserID: 42, Email: "ada@example.com", Role: domain.RoleContributor, Token: "tok", ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second)}

	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("unexpected permissions: %v", perm)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UserID != want.UserID || got.Role != want.Role || got.Token != want.Token || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("unexpected identity: %#v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestStoreLoadExpired(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.yaml"))
	if err := store.Save(Identity{UserID: 1, Role: domain.RoleAdmin, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := store.Load(); !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error for expired session, got %v", err)
	}
}
