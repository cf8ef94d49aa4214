package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/store"
	"github.com/lorenzotomasdiez/agora/internal/summary"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	debateID = "64b7f0c2a1d3e4f5a6b7c8d9"
	me       = "u-me"
	rival    = "u-rival"
)

func argID(n int) string { return fmt.Sprintf("%024x", n) }

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// mockRemote keeps server state in memory and logs every call.
type mockRemote struct {
	mu    sync.Mutex
	args  []debate.Argument
	sides map[string]debate.Side
	calls []string
	next  int

	listErr   error
	voteErr   error
	joinErr   error
	sideErr   error
	createErr error

	// Hooks run before the call completes, outside the mock's lock.
	onJoin func()
	onVote func()
}

func newMockRemote(args ...debate.Argument) *mockRemote {
	return &mockRemote{args: args, sides: map[string]debate.Side{}, next: 100}
}

func (m *mockRemote) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockRemote) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockRemote) ListArguments(ctx context.Context, id string) ([]debate.Argument, error) {
	m.record("list")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]debate.Argument(nil), m.args...), nil
}

func (m *mockRemote) CreateArgument(ctx context.Context, id string, side debate.Side, text string) (debate.Argument, error) {
	m.record("create")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return debate.Argument{}, m.createErr
	}
	m.next++
	a := debate.Argument{ID: argID(m.next), DebateID: id, Author: debate.UserRef{ID: me}, Side: side, Text: text}
	m.args = append(m.args, a)
	return a, nil
}

func (m *mockRemote) UpdateArgument(ctx context.Context, id, text string) error {
	m.record("update")
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.args {
		if m.args[i].ID == id {
			m.args[i].Text = text
		}
	}
	return nil
}

func (m *mockRemote) DeleteArgument(ctx context.Context, id string) error {
	m.record("delete")
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.args {
		if m.args[i].ID == id {
			m.args = append(m.args[:i], m.args[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRemote) Vote(ctx context.Context, id string, v debate.VoteType) error {
	m.record("vote")
	if m.onVote != nil {
		m.onVote()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.voteErr != nil {
		return m.voteErr
	}
	for i := range m.args {
		if m.args[i].ID == id {
			m.args[i] = m.args[i].WithVote(v)
		}
	}
	return nil
}

func (m *mockRemote) UserSide(ctx context.Context, id string) (debate.Side, error) {
	m.record("user-side")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sideErr != nil {
		return "", m.sideErr
	}
	return m.sides[me], nil
}

func (m *mockRemote) JoinSide(ctx context.Context, id string, side debate.Side) error {
	m.record("join:" + string(side))
	if m.onJoin != nil {
		m.onJoin()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	if held, ok := m.sides[me]; ok && held != side {
		return apperr.New(apperr.Forbidden, "join side", "already joined")
	}
	m.sides[me] = side
	return nil
}

type mockModerator struct {
	remote *mockRemote
	reject bool
	err    error
	calls  int
}

func (m *mockModerator) Check(ctx context.Context, text string) error {
	m.calls++
	if m.remote != nil {
		m.remote.record("moderate")
	}
	if m.err != nil {
		return m.err
	}
	if m.reject {
		return apperr.New(apperr.ModerationRejected, "moderate", "flagged")
	}
	return nil
}

type mockSummarizer struct {
	text  string
	calls int
}

func (m *mockSummarizer) Generate(ctx context.Context, req summary.Request) (string, error) {
	m.calls++
	return m.text, nil
}

type memStore struct {
	mu          sync.Mutex
	memberships map[string]debate.Side
	summaries   map[string]store.Summary
}

func newMemStore() *memStore {
	return &memStore{memberships: map[string]debate.Side{}, summaries: map[string]store.Summary{}}
}

func (s *memStore) Membership(ctx context.Context, d, u string) (debate.Side, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	side, ok := s.memberships[d+"/"+u]
	return side, ok, nil
}

func (s *memStore) SaveMembership(ctx context.Context, d, u string, side debate.Side, at time.Time) (debate.Side, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.memberships[d+"/"+u]; ok {
		return held, nil
	}
	s.memberships[d+"/"+u] = side
	return side, nil
}

func (s *memStore) Summary(ctx context.Context, d string) (store.Summary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[d]
	return sum, ok, nil
}

func (s *memStore) SaveSummary(ctx context.Context, sum store.Summary) (store.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.summaries[sum.DebateID]; ok {
		return held, nil
	}
	s.summaries[sum.DebateID] = sum
	return sum, nil
}

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(k EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) last(k EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == k {
			return r.events[i], true
		}
	}
	return Event{}, false
}

type harness struct {
	clock  *fakeClock
	remote *mockRemote
	mod    *mockModerator
	sum    *mockSummarizer
	store  *memStore
	events *recorder
	s      *Session
}

func hourDebate() *debate.Debate {
	return &debate.Debate{ID: debateID, Title: "Cities should ban cars", CreatedAt: t0, Duration: 3600}
}

func newHarness(d *debate.Debate, args ...debate.Argument) *harness {
	h := &harness{
		clock:  &fakeClock{now: t0},
		remote: newMockRemote(args...),
		sum:    &mockSummarizer{text: "Support won."},
		store:  newMemStore(),
		events: &recorder{},
	}
	h.mod = &mockModerator{remote: h.remote}
	h.s = New(d, me, Deps{
		Remote:       h.remote,
		Moderator:    h.mod,
		Summarizer:   h.sum,
		Store:        h.store,
		Now:          h.clock.Now,
		PollInterval: 30 * time.Second,
		OnEvent:      h.events.add,
	})
	return h
}

func storeSummary(text string) store.Summary {
	return store.Summary{DebateID: debateID, Winner: debate.Oppose, Text: text, CreatedAt: t0}
}
