// Package auth holds the credential session injected into the API client.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
)

// RefreshLeeway is how close to expiry a token is refreshed before use.
const RefreshLeeway = 60 * time.Second

// Token is a bearer credential pair.
type Token struct {
	Access  string
	Refresh string
}

// Refresher obtains a fresh credential.
type Refresher interface {
	Refresh(ctx context.Context, current Token) (Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, current Token) (Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, current Token) (Token, error) {
	return f(ctx, current)
}

// Session owns the current credential. It is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	token     Token
	refresher Refresher
	userID    string
	reload    bool
	now       func() time.Time
}

// NewSession returns a session initialized with tok. refresher may be nil,
// in which case a rejected token cannot be renewed.
func NewSession(tok Token, refresher Refresher) *Session {
	s := &Session{refresher: refresher, now: time.Now}
	s.Init(tok)
	return s
}

// SetClock replaces the time source used for expiry checks.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Init installs tok and clears any reload mark.
func (s *Session) Init(tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	s.reload = false
	s.userID = subject(tok.Access)
}

// Authenticated reports whether a credential is present.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token.Access != ""
}

// UserID is the participant id, taken from the token claims or SetUser.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SetUser records the participant id reported by the server.
func (s *Session) SetUser(id string) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

// Token returns the access token, refreshing it first when it expires
// within RefreshLeeway. An unauthenticated session yields "".
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	tok := s.token
	now := s.now()
	s.mu.Unlock()

	if tok.Access == "" {
		return "", nil
	}
	if exp, ok := expiry(tok.Access); ok && exp.Sub(now) < RefreshLeeway && s.refresher != nil {
		return s.Refresh(ctx)
	}
	return tok.Access, nil
}

// Refresh replaces the access token via the refresher.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	tok := s.token
	r := s.refresher
	s.mu.Unlock()

	if r == nil {
		return "", apperr.New(apperr.AuthRequired, "refresh", "no way to refresh credentials")
	}
	next, err := r.Refresh(ctx, tok)
	if err != nil {
		return "", apperr.Wrap(apperr.AuthRequired, "refresh", err)
	}
	if next.Access == "" {
		return "", apperr.New(apperr.AuthRequired, "refresh", "refresher returned an empty token")
	}
	if next.Refresh == "" {
		next.Refresh = tok.Refresh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = next
	if sub := subject(next.Access); sub != "" {
		s.userID = sub
	}
	return next.Access, nil
}

// MarkReload drops the credential after the server rejected a refreshed
// token; the caller must sign in again.
func (s *Session) MarkReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = Token{}
	s.reload = true
}

// ReloadRequired reports whether MarkReload was called since the last Init.
func (s *Session) ReloadRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload
}

// Teardown forgets the credential and the user.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = Token{}
	s.userID = ""
}

func claims(token string) jwt.MapClaims {
	t, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	c, _ := t.Claims.(jwt.MapClaims)
	return c
}

// Opaque tokens have no readable expiry and are used until rejected.
func expiry(token string) (time.Time, bool) {
	c := claims(token)
	if c == nil {
		return time.Time{}, false
	}
	exp, err := c.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func subject(token string) string {
	c := claims(token)
	if c == nil {
		return ""
	}
	if sub, err := c.GetSubject(); err == nil && sub != "" {
		return sub
	}
	if id, ok := c["user_id"].(string); ok {
		return id
	}
	return ""
}

// FileRefresher re-reads a token file written by an external sign-in flow.
// The first line is the access token; an optional second line is the
// refresh token.
type FileRefresher struct {
	Path string
}

func (f FileRefresher) Refresh(ctx context.Context, current Token) (Token, error) {
	tok, err := ReadTokenFile(f.Path)
	if err != nil {
		return Token{}, err
	}
	if tok.Access == current.Access {
		return Token{}, fmt.Errorf("auth: token file %s has not changed", f.Path)
	}
	return tok, nil
}

// ReadTokenFile parses a token file.
func ReadTokenFile(path string) (Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Token{}, fmt.Errorf("auth: read token file: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	tok := Token{Access: strings.TrimSpace(lines[0])}
	if len(lines) > 1 {
		tok.Refresh = strings.TrimSpace(lines[1])
	}
	if tok.Access == "" {
		return Token{}, fmt.Errorf("auth: token file %s is empty", path)
	}
	return tok, nil
}
