// Package session drives one participant's view of one debate: side
// membership, the reply deadline, the debate clock, optimistic votes and
// periodic refresh. All state changes happen under one mutex; Tick is the
// only time-driven entry point.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/logging"
	"github.com/lorenzotomasdiez/agora/internal/store"
	"github.com/lorenzotomasdiez/agora/internal/summary"
)

// DefaultPollInterval is the refresh period while the debate is open.
const DefaultPollInterval = 30 * time.Second

// ErrClosed is returned by operations on a torn-down session.
var ErrClosed = errors.New("session: closed")

// Remote is the part of the debate service a session uses.
type Remote interface {
	ListArguments(ctx context.Context, debateID string) ([]debate.Argument, error)
	CreateArgument(ctx context.Context, debateID string, side debate.Side, text string) (debate.Argument, error)
	UpdateArgument(ctx context.Context, argumentID, text string) error
	DeleteArgument(ctx context.Context, argumentID string) error
	Vote(ctx context.Context, argumentID string, v debate.VoteType) error
	UserSide(ctx context.Context, debateID string) (debate.Side, error)
	JoinSide(ctx context.Context, debateID string, side debate.Side) error
}

// Moderator approves argument text. A nil error means the text may be
// posted.
type Moderator interface {
	Check(ctx context.Context, text string) error
}

// Summarizer writes the closing summary.
type Summarizer interface {
	Generate(ctx context.Context, req summary.Request) (string, error)
}

// Store persists observations across runs.
type Store interface {
	Membership(ctx context.Context, debateID, userID string) (debate.Side, bool, error)
	SaveMembership(ctx context.Context, debateID, userID string, side debate.Side, at time.Time) (debate.Side, error)
	Summary(ctx context.Context, debateID string) (store.Summary, bool, error)
	SaveSummary(ctx context.Context, s store.Summary) (store.Summary, error)
}

// Metrics observes session activity.
type Metrics interface {
	ObserveVote(voteType string, ok bool)
	SessionOpened()
	SessionClosed()
}

// Deps are a session's collaborators. Remote is required; the rest are
// optional.
type Deps struct {
	Remote       Remote
	Moderator    Moderator
	Summarizer   Summarizer
	Store        Store
	Metrics      Metrics
	Now          func() time.Time
	PollInterval time.Duration
	OnEvent      func(Event)
	Logger       *zerolog.Logger
}

// Session is one participant's live view of one debate.
type Session struct {
	mu        sync.Mutex
	joinMu    sync.Mutex
	summaryMu sync.Mutex

	debate *debate.Debate
	userID string
	deps   Deps
	log    zerolog.Logger

	clock    *debate.Clock
	side     debate.Side
	deadline *Deadline
	args     []debate.Argument
	overlay  map[string]debate.Argument
	nextPoll time.Time
	summary  string
	torn     bool

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session for userID, which may be empty for a spectator.
// A debate that has already ended is closed from the start.
func New(d *debate.Debate, userID string, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	log := logging.Component("session")
	if deps.Logger != nil {
		log = *deps.Logger
	}
	s := &Session{
		debate:  d,
		userID:  userID,
		deps:    deps,
		log:     log.With().Str("debate_id", d.ID).Logger(),
		clock:   debate.NewClock(d),
		overlay: map[string]debate.Argument{},
		done:    make(chan struct{}),
	}
	if deps.Metrics != nil {
		deps.Metrics.SessionOpened()
	}
	return s
}

// Debate returns the debate this session follows.
func (s *Session) Debate() *debate.Debate { return s.debate }

// UserID returns the participant id.
func (s *Session) UserID() string { return s.userID }

// Close tears the session down. Results of calls still in flight are
// discarded and no further events fire.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.torn = true
		s.mu.Unlock()
		close(s.done)
		if s.deps.Metrics != nil {
			s.deps.Metrics.SessionClosed()
		}
	})
}

// emit delivers events unless the session has been torn down. It must be
// called without holding mu.
func (s *Session) emit(evs ...Event) {
	if s.deps.OnEvent == nil || len(evs) == 0 {
		return
	}
	s.mu.Lock()
	torn := s.torn
	s.mu.Unlock()
	if torn {
		return
	}
	for _, e := range evs {
		s.deps.OnEvent(e)
	}
}

// Load fetches the arguments and resolves the participant's side. A server
// membership record wins over inference; inference from an authored
// argument only fills an absent record and is committed back best effort.
func (s *Session) Load(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	if s.userID == "" {
		return nil
	}

	now := s.deps.Now()
	side, err := s.deps.Remote.UserSide(ctx, s.debate.ID)
	restored := ""
	switch {
	case err == nil && side.Valid():
		restored = "server"
	case err == nil:
		if side = s.inferSide(); side.Valid() {
			restored = "argument"
			if jerr := s.deps.Remote.JoinSide(ctx, s.debate.ID, side); jerr != nil {
				s.log.Warn().Err(jerr).Msg("could not commit inferred side")
			}
		}
	default:
		s.log.Warn().Err(err).Msg("user side lookup failed")
		if s.deps.Store != nil {
			if held, ok, serr := s.deps.Store.Membership(ctx, s.debate.ID, s.userID); serr == nil && ok {
				side, restored = held, "store"
			}
		}
		if restored == "" {
			if side = s.inferSide(); side.Valid() {
				restored = "argument"
			}
		}
	}
	if restored == "" {
		return nil
	}

	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.side == "" {
		s.side = side
	}
	side = s.side
	s.mu.Unlock()

	s.remember(ctx, side, now)
	s.emit(Event{Kind: SideRestored, At: now, Side: side, Text: restored})
	return nil
}

func (s *Session) inferSide() debate.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := debate.AuthoredBy(s.args, s.userID, ""); ok {
		return a.Side
	}
	return ""
}

// remember records a membership in the local store, best effort.
func (s *Session) remember(ctx context.Context, side debate.Side, at time.Time) {
	if s.deps.Store == nil {
		return
	}
	if _, err := s.deps.Store.SaveMembership(ctx, s.debate.ID, s.userID, side, at); err != nil {
		s.log.Warn().Err(err).Msg("could not record membership")
	}
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Debate         *debate.Debate
	At             time.Time
	Open           bool
	Remaining      time.Duration
	Side           debate.Side
	DeadlineActive bool
	DeadlineLeft   time.Duration
	// DeadlineShown is the reply countdown as mm:ss.
	DeadlineShown  string
	Arguments      []debate.Argument
	Tally          debate.Tally
	Winner         debate.Winner
	Summary        string
}

// View returns the current state with optimistic votes applied.
func (s *Session) View() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.deps.Now()
	open := s.clock.Open(now)
	args := s.viewArgs()
	return Snapshot{
		Debate:         s.debate,
		At:             now,
		Open:           open,
		Remaining:      debate.Remaining(s.debate, now),
		Side:           s.side,
		DeadlineActive: s.deadline.Active(),
		DeadlineLeft:   s.deadline.Remaining(now),
		DeadlineShown:  s.deadline.Display(now),
		Arguments:      args,
		Tally:          debate.Count(args),
		Winner:         debate.Resolve(args, open),
		Summary:        s.summary,
	}
}

// viewArgs copies the authoritative list with the overlay applied. Caller
// holds mu.
func (s *Session) viewArgs() []debate.Argument {
	out := make([]debate.Argument, len(s.args))
	for i, a := range s.args {
		if o, ok := s.overlay[a.ID]; ok {
			a = o
		}
		out[i] = a
	}
	return out
}

// find returns the displayed version of an argument. Caller holds mu.
func (s *Session) find(id string) (debate.Argument, bool) {
	if o, ok := s.overlay[id]; ok {
		return o, true
	}
	for _, a := range s.args {
		if a.ID == id {
			return a, true
		}
	}
	return debate.Argument{}, false
}

func notFound(op, id string) error {
	return apperr.New(apperr.NotFound, op, "no argument "+id+" in this debate")
}
