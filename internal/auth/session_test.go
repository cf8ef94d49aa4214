package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mint(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

type countingRefresher struct {
	next  Token
	err   error
	calls int
}

func (r *countingRefresher) Refresh(ctx context.Context, current Token) (Token, error) {
	r.calls++
	return r.next, r.err
}

func TestSessionReadsSubject(t *testing.T) {
	s := NewSession(Token{Access: mint(t, "u1", t0.Add(time.Hour))}, nil)
	if !s.Authenticated() {
		t.Fatal("expected authenticated")
	}
	if s.UserID() != "u1" {
		t.Errorf("UserID = %q, want u1", s.UserID())
	}

	legacy, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u2"}).SignedString([]byte("k"))
	s.Init(Token{Access: legacy})
	if s.UserID() != "u2" {
		t.Errorf("UserID from user_id claim = %q", s.UserID())
	}
}

func TestTokenFreshIsNotRefreshed(t *testing.T) {
	r := &countingRefresher{next: Token{Access: "new"}}
	access := mint(t, "u1", t0.Add(10*time.Minute))
	s := NewSession(Token{Access: access}, r)
	s.SetClock(func() time.Time { return t0 })

	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != access || r.calls != 0 {
		t.Errorf("got %q after %d refreshes", got, r.calls)
	}
}

func TestTokenNearExpiryRefreshes(t *testing.T) {
	fresh := mint(t, "u1", t0.Add(time.Hour))
	r := &countingRefresher{next: Token{Access: fresh}}
	s := NewSession(Token{Access: mint(t, "u1", t0.Add(30*time.Second)), Refresh: "r1"}, r)
	s.SetClock(func() time.Time { return t0 })

	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != fresh || r.calls != 1 {
		t.Errorf("got %q after %d refreshes", got, r.calls)
	}
	if s.token.Refresh != "r1" {
		t.Errorf("refresh token should be kept, got %q", s.token.Refresh)
	}
}

func TestOpaqueTokenUsedAsIs(t *testing.T) {
	r := &countingRefresher{}
	s := NewSession(Token{Access: "opaque"}, r)
	got, err := s.Token(context.Background())
	if err != nil || got != "opaque" {
		t.Fatalf("Token = %q, %v", got, err)
	}
	if s.UserID() != "" {
		t.Errorf("UserID = %q, want empty", s.UserID())
	}
}

func TestAnonymousToken(t *testing.T) {
	s := NewSession(Token{}, nil)
	got, err := s.Token(context.Background())
	if err != nil || got != "" {
		t.Fatalf("Token = %q, %v", got, err)
	}
	if s.Authenticated() {
		t.Error("empty session should not be authenticated")
	}
}

func TestRefreshFailures(t *testing.T) {
	s := NewSession(Token{Access: "a"}, nil)
	if _, err := s.Refresh(context.Background()); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Errorf("no refresher: err = %v", err)
	}

	s = NewSession(Token{Access: "a"}, &countingRefresher{err: errors.New("revoked")})
	if _, err := s.Refresh(context.Background()); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Errorf("failing refresher: err = %v", err)
	}

	s = NewSession(Token{Access: "a"}, &countingRefresher{})
	if _, err := s.Refresh(context.Background()); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Errorf("empty refresh: err = %v", err)
	}
}

func TestMarkReloadAndTeardown(t *testing.T) {
	s := NewSession(Token{Access: mint(t, "u1", t0.Add(time.Hour))}, nil)
	s.MarkReload()
	if !s.ReloadRequired() || s.Authenticated() {
		t.Fatal("MarkReload should clear the token and flag a reload")
	}

	s.Init(Token{Access: "b"})
	if s.ReloadRequired() {
		t.Error("Init should clear the reload mark")
	}

	s.SetUser("u9")
	s.Teardown()
	if s.Authenticated() || s.UserID() != "" {
		t.Error("Teardown should clear token and user")
	}
}

func TestFileRefresher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("access-1\nrefresh-1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tok, err := ReadTokenFile(path)
	if err != nil {
		t.Fatalf("ReadTokenFile: %v", err)
	}
	if tok.Access != "access-1" || tok.Refresh != "refresh-1" {
		t.Errorf("token = %+v", tok)
	}

	f := FileRefresher{Path: path}
	if _, err := f.Refresh(context.Background(), tok); err == nil {
		t.Error("unchanged file should not count as a refresh")
	}

	if err := os.WriteFile(path, []byte("access-2"), 0o600); err != nil {
		t.Fatal(err)
	}
	next, err := f.Refresh(context.Background(), tok)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.Access != "access-2" {
		t.Errorf("next = %+v", next)
	}

	if _, err := ReadTokenFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing file should fail")
	}
}
