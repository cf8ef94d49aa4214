package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
)

// JoinSide commits the participant to side. Joining the held side again is
// a no-op; joining the other side fails before any network call. Joins are
// serialized so the first commit wins.
func (s *Session) JoinSide(ctx context.Context, side debate.Side) error {
	if !side.Valid() {
		return apperr.New(apperr.Validation, "join side", "side must be support or oppose")
	}
	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	now := s.deps.Now()
	s.mu.Lock()
	torn, held, open := s.torn, s.side, s.clock.Open(now)
	s.mu.Unlock()

	switch {
	case torn:
		return ErrClosed
	case held == side:
		return nil
	case held != "":
		return debate.ErrAlreadyOnOtherSide
	case !open:
		return debate.ErrDebateClosed
	case s.userID == "":
		return apperr.New(apperr.AuthRequired, "join side", "sign in to join a side")
	}

	if err := s.deps.Remote.JoinSide(ctx, s.debate.ID, side); err != nil {
		if !errors.Is(err, apperr.ErrForbidden) {
			return err
		}
		// The server may already hold a membership made elsewhere.
		existing, qerr := s.deps.Remote.UserSide(ctx, s.debate.ID)
		if qerr != nil || !existing.Valid() {
			return err
		}
		s.mu.Lock()
		if s.torn {
			s.mu.Unlock()
			return ErrClosed
		}
		s.side = existing
		s.mu.Unlock()
		s.remember(ctx, existing, now)
		s.emit(Event{Kind: SideRestored, At: now, Side: existing, Text: "server"})
		if existing != side {
			return debate.ErrAlreadyOnOtherSide
		}
		return nil
	}

	now = s.deps.Now()
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return ErrClosed
	}
	s.side = side
	s.deadline = StartDeadline(now)
	evs := []Event{{Kind: Joined, At: now, Side: side}}
	if s.reconcileDeadline() {
		evs = append(evs, Event{Kind: DeadlineCleared, At: now, Side: side})
	}
	s.mu.Unlock()

	s.remember(ctx, side, now)
	s.log.Info().Str("side", string(side)).Msg("joined side")
	s.emit(evs...)
	return nil
}

// reconcileDeadline clears a running deadline once an argument by the
// participant on their side is present. Caller holds mu.
func (s *Session) reconcileDeadline() bool {
	if !s.deadline.Active() || s.side == "" {
		return false
	}
	if _, ok := debate.AuthoredBy(s.args, s.userID, s.side); !ok {
		return false
	}
	return s.deadline.Clear()
}

// SubmitArgument moderates text, posts it on the participant's side and
// refreshes the list, in that order.
func (s *Session) SubmitArgument(ctx context.Context, text string) (debate.Argument, error) {
	const op = "submit argument"
	text = strings.TrimSpace(text)
	if text == "" {
		return debate.Argument{}, apperr.New(apperr.Validation, op, "argument text is empty")
	}

	now := s.deps.Now()
	s.mu.Lock()
	torn, side, open := s.torn, s.side, s.clock.Open(now)
	s.mu.Unlock()
	switch {
	case torn:
		return debate.Argument{}, ErrClosed
	case !open:
		return debate.Argument{}, debate.ErrDebateClosed
	case side == "":
		return debate.Argument{}, debate.ErrNoSide
	}

	if err := s.moderate(ctx, text); err != nil {
		return debate.Argument{}, err
	}

	a, err := s.deps.Remote.CreateArgument(ctx, s.debate.ID, side, text)
	if err != nil {
		return debate.Argument{}, err
	}
	if a.Author.ID == "" {
		a.Author.ID = s.userID
	}
	if a.Side == "" {
		a.Side = side
	}

	now = s.deps.Now()
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return a, nil
	}
	if _, ok := s.find(a.ID); !ok || a.ID == "" {
		s.args = append(s.args, a)
	}
	evs := []Event{{Kind: ArgumentPosted, At: now, Side: side, ArgumentID: a.ID, Text: a.Text}}
	if s.reconcileDeadline() {
		evs = append(evs, Event{Kind: DeadlineCleared, At: now, Side: side})
	}
	s.mu.Unlock()
	s.emit(evs...)

	s.refreshAfterMutation(ctx)
	return a, nil
}

func (s *Session) moderate(ctx context.Context, text string) error {
	if s.deps.Moderator == nil {
		return apperr.New(apperr.Network, "moderate", "moderation is not configured")
	}
	return s.deps.Moderator.Check(ctx, text)
}

// refreshAfterMutation refetches after a successful write. A failed refresh
// is reported as an event; the write itself stands.
func (s *Session) refreshAfterMutation(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("refresh after write failed")
	}
}

// Vote casts v on an argument. The change is shown immediately as an
// overlay and replaced by the server's numbers on the next refresh. A
// failed vote drops the overlay entry and refetches.
func (s *Session) Vote(ctx context.Context, argumentID string, v debate.VoteType) error {
	const op = "vote"
	if v != debate.Upvote && v != debate.Downvote {
		return apperr.New(apperr.Validation, op, "vote must be upvote or downvote")
	}

	now := s.deps.Now()
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return ErrClosed
	}
	a, ok := s.find(argumentID)
	var err error
	switch {
	case !s.clock.Open(now):
		err = debate.ErrDebateClosed
	case !ok:
		err = notFound(op, argumentID)
	case s.userID == "":
		err = apperr.New(apperr.AuthRequired, op, "sign in to vote")
	case a.Author.ID == s.userID:
		err = debate.ErrOwnArgument
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.overlay[argumentID] = a.WithVote(v)
	s.mu.Unlock()

	if err := s.deps.Remote.Vote(ctx, argumentID, v); err != nil {
		s.observeVote(v, false)
		s.mu.Lock()
		delete(s.overlay, argumentID)
		s.mu.Unlock()
		s.refreshAfterMutation(ctx)
		return err
	}
	s.observeVote(v, true)
	s.emit(Event{Kind: VoteCast, At: s.deps.Now(), ArgumentID: argumentID, Vote: v})
	s.refreshAfterMutation(ctx)
	return nil
}

func (s *Session) observeVote(v debate.VoteType, ok bool) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveVote(string(v), ok)
	}
}

// EditArgument replaces the text of the participant's own argument while
// the debate is open and the edit window has not passed.
func (s *Session) EditArgument(ctx context.Context, argumentID, text string) error {
	const op = "edit argument"
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.New(apperr.Validation, op, "argument text is empty")
	}
	if err := s.checkOwn(op, argumentID, debate.CanEdit); err != nil {
		return err
	}
	if err := s.moderate(ctx, text); err != nil {
		return err
	}
	if err := s.deps.Remote.UpdateArgument(ctx, argumentID, text); err != nil {
		return err
	}
	s.emit(Event{Kind: ArgumentUpdated, At: s.deps.Now(), ArgumentID: argumentID, Text: text})
	s.refreshAfterMutation(ctx)
	return nil
}

// DeleteArgument removes the participant's own argument under the same
// rules as EditArgument.
func (s *Session) DeleteArgument(ctx context.Context, argumentID string) error {
	const op = "delete argument"
	if err := s.checkOwn(op, argumentID, debate.CanDelete); err != nil {
		return err
	}
	if err := s.deps.Remote.DeleteArgument(ctx, argumentID); err != nil {
		return err
	}
	s.emit(Event{Kind: ArgumentDeleted, At: s.deps.Now(), ArgumentID: argumentID})
	s.refreshAfterMutation(ctx)
	return nil
}

type ownershipRule func(a debate.Argument, userID string, open bool, now time.Time) error

func (s *Session) checkOwn(op, argumentID string, rule ownershipRule) error {
	now := s.deps.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return ErrClosed
	}
	a, ok := s.find(argumentID)
	if !ok {
		return notFound(op, argumentID)
	}
	return rule(a, s.userID, s.clock.Open(now), now)
}
