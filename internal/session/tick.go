package session

import (
	"context"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/debate"
)

// Refresh replaces the argument list with the server's and discards every
// optimistic vote.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refreshAt(ctx, s.deps.Now())
}

func (s *Session) refreshAt(ctx context.Context, now time.Time) error {
	args, err := s.deps.Remote.ListArguments(ctx, s.debate.ID)

	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return ErrClosed
	}
	s.nextPoll = now.Add(s.deps.PollInterval)
	if err != nil {
		s.mu.Unlock()
		s.emit(Event{Kind: RefreshFailed, At: now, Err: err})
		return err
	}
	s.args = args
	clear(s.overlay)
	evs := []Event{{Kind: Refreshed, At: now}}
	if s.reconcileDeadline() {
		evs = append(evs, Event{Kind: DeadlineCleared, At: now, Side: s.side})
	}
	s.mu.Unlock()

	s.emit(evs...)
	return nil
}

// Tick advances the clock, the reply deadline and the poll schedule to now.
// The closing edge triggers one final refresh and a single DebateClosed.
func (s *Session) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return
	}
	var evs []Event
	closing := s.clock.Advance(now)
	if s.deadline.Advance(now) {
		evs = append(evs, Event{Kind: DeadlineExpired, At: now, Side: s.side})
	}
	poll := !closing && s.clock.Open(now) && !now.Before(s.nextPoll)
	s.mu.Unlock()

	s.emit(evs...)

	if poll {
		if err := s.refreshAt(ctx, now); err != nil {
			s.log.Debug().Err(err).Msg("poll failed")
		}
	}
	if closing {
		if err := s.refreshAt(ctx, now); err != nil {
			s.log.Warn().Err(err).Msg("final refresh failed")
		}
		s.mu.Lock()
		winner := debate.Resolve(s.viewArgs(), false)
		s.mu.Unlock()
		s.log.Info().Str("winner", string(winner)).Msg("debate closed")
		s.emit(Event{Kind: DebateClosed, At: now, Winner: winner})
	}
}

// Run drives Tick once a second until ctx ends or the session is closed.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	s.Tick(ctx, s.deps.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.deps.Now())
		}
	}
}
