// Package fakeapi is an in-memory implementation of the debate service used
// by tests. It follows the same routes, envelope and rules as the real one.
package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lorenzotomasdiez/agora/internal/debate"
)

type failure struct {
	status int
	times  int
}

// Server holds the fake service state. All methods are safe for concurrent
// use.
type Server struct {
	mu     sync.Mutex
	engine *gin.Engine
	secret []byte
	now    func() time.Time

	debates   map[string]*debate.Debate
	order     []string
	arguments map[string]*debate.Argument
	argOrder  []string
	votes     map[string]map[string]debate.VoteType
	sides     map[string]map[string]membership
	users     map[string]*debate.User

	calls    map[string]int
	failures map[string]*failure
}

type membership struct {
	side     debate.Side
	joinedAt time.Time
}

// New returns an empty server.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		secret:    []byte("fakeapi-secret"),
		now:       time.Now,
		debates:   map[string]*debate.Debate{},
		arguments: map[string]*debate.Argument{},
		votes:     map[string]map[string]debate.VoteType{},
		sides:     map[string]map[string]membership{},
		users:     map[string]*debate.User{},
		calls:     map[string]int{},
		failures:  map[string]*failure{},
	}
	s.engine = s.routes()
	return s
}

// Handler serves the API under /api.
func (s *Server) Handler() http.Handler { return s.engine }

// SetClock replaces the server's time source.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// NewID returns a fresh 24-character hex id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// AddUser registers a participant and returns a token valid for ttl.
func (s *Server) AddUser(id, name string, ttl time.Duration) string {
	s.mu.Lock()
	s.users[id] = &debate.User{ID: id, Name: name, Email: strings.ToLower(name) + "@example.com"}
	s.mu.Unlock()
	return s.Token(id, ttl)
}

// Token mints a signed token for userID expiring after ttl.
func (s *Server) Token(userID string, ttl time.Duration) string {
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("fakeapi: sign token: %v", err))
	}
	return tok
}

// AddDebate stores d, assigning an id when it has none.
func (s *Server) AddDebate(d debate.Debate) debate.Debate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = NewID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	if _, ok := s.debates[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.debates[d.ID] = &d
	return d
}

// AddArgument stores a without touching memberships.
func (s *Server) AddArgument(a debate.Argument) debate.Argument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	a.ViewerVote = debate.NoVote
	if _, ok := s.arguments[a.ID]; !ok {
		s.argOrder = append(s.argOrder, a.ID)
	}
	s.arguments[a.ID] = &a
	return a
}

// SetSide records a membership directly.
func (s *Server) SetSide(debateID, userID string, side debate.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.join(debateID, userID, side)
}

func (s *Server) join(debateID, userID string, side debate.Side) {
	if s.sides[debateID] == nil {
		s.sides[debateID] = map[string]membership{}
	}
	s.sides[debateID][userID] = membership{side: side, joinedAt: s.now()}
}

// Side returns the recorded membership of userID.
func (s *Server) Side(debateID, userID string) debate.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sides[debateID][userID].side
}

// Arguments returns the stored arguments of a debate without viewer votes.
func (s *Server) Arguments(debateID string) []debate.Argument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listArguments(debateID, "")
}

// Calls returns how many requests reached route, written as
// "METHOD /api/path/:param".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// FailNext makes the next n requests to route answer with status.
func (s *Server) FailNext(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, times: n}
}

func (s *Server) listArguments(debateID, viewer string) []debate.Argument {
	out := []debate.Argument{}
	for _, id := range s.argOrder {
		a, ok := s.arguments[id]
		if !ok || a.DebateID != debateID {
			continue
		}
		cp := *a
		if viewer != "" {
			cp.ViewerVote = s.votes[id][viewer]
		}
		if u, ok := s.users[cp.Author.ID]; ok {
			cp.Author.Name = u.Name
		}
		out = append(out, cp)
	}
	return out
}

func (s *Server) leaderboard(period debate.Period, limit int) []debate.User {
	var since time.Time
	switch period {
	case debate.Weekly:
		since = s.now().AddDate(0, 0, -7)
	case debate.Monthly:
		since = s.now().AddDate(0, -1, 0)
	}

	totals := map[string]*debate.User{}
	for _, id := range s.argOrder {
		a := s.arguments[id]
		if a == nil || a.CreatedAt.Before(since) {
			continue
		}
		u, ok := totals[a.Author.ID]
		if !ok {
			base := debate.User{ID: a.Author.ID, Name: a.Author.Name}
			if known, ok := s.users[a.Author.ID]; ok {
				base = *known
			}
			u = &base
			u.TotalVotes = 0
			totals[a.Author.ID] = u
		}
		u.TotalVotes += a.Upvotes
	}
	for _, members := range s.sides {
		for uid := range members {
			if u, ok := totals[uid]; ok {
				u.DebatesParticipated++
			}
		}
	}

	out := make([]debate.User, 0, len(totals))
	for _, u := range totals {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVotes != out[j].TotalVotes {
			return out[i].TotalVotes > out[j].TotalVotes
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
