package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
)

var ctx = context.Background()

func TestJoinSideIsIdempotent(t *testing.T) {
	h := newHarness(hourDebate())

	if err := h.s.JoinSide(ctx, debate.Support); err != nil {
		t.Fatalf("JoinSide: %v", err)
	}
	first := h.s.View()
	h.clock.Set(t0.Add(time.Minute))
	if err := h.s.JoinSide(ctx, debate.Support); err != nil {
		t.Fatalf("second JoinSide: %v", err)
	}

	if n := h.remote.count("join:support"); n != 1 {
		t.Errorf("remote joins = %d, want 1", n)
	}
	if n := h.events.count(Joined); n != 1 {
		t.Errorf("Joined events = %d, want 1", n)
	}
	if v := h.s.View(); v.DeadlineLeft != first.DeadlineLeft-time.Minute {
		t.Errorf("deadline restarted: left %s", v.DeadlineLeft)
	}
	if side, _, _ := h.store.Membership(ctx, debateID, me); side != debate.Support {
		t.Errorf("store side = %q", side)
	}
}

func TestJoinOtherSideFailsLocally(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.JoinSide(ctx, debate.Support); err != nil {
		t.Fatal(err)
	}

	err := h.s.JoinSide(ctx, debate.Oppose)
	if !errors.Is(err, debate.ErrAlreadyOnOtherSide) {
		t.Fatalf("err = %v, want already on other side", err)
	}
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Error("side conflict should be a forbidden error")
	}
	if n := h.remote.count("join:oppose"); n != 0 {
		t.Errorf("conflicting join reached the server %d times", n)
	}
	if h.s.View().Side != debate.Support {
		t.Error("side should be unchanged")
	}
}

func TestConcurrentJoinsFirstCommitWins(t *testing.T) {
	h := newHarness(hourDebate())

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := debate.Support
			if i%2 == 1 {
				side = debate.Oppose
			}
			errs[i] = h.s.JoinSide(ctx, side)
		}(i)
	}
	wg.Wait()

	held := h.s.View().Side
	if !held.Valid() {
		t.Fatal("no side committed")
	}
	for i, err := range errs {
		mine := debate.Support
		if i%2 == 1 {
			mine = debate.Oppose
		}
		if mine == held && err != nil {
			t.Errorf("join %d on the winning side failed: %v", i, err)
		}
		if mine != held && !errors.Is(err, debate.ErrAlreadyOnOtherSide) {
			t.Errorf("join %d on the losing side = %v", i, err)
		}
	}
	if n := h.remote.count("join:support") + h.remote.count("join:oppose"); n != 1 {
		t.Errorf("remote joins = %d, want 1", n)
	}
	if n := h.events.count(Joined); n != 1 {
		t.Errorf("Joined events = %d, want 1", n)
	}
}

func TestJoinClosedDebate(t *testing.T) {
	h := newHarness(hourDebate())
	h.clock.Set(t0.Add(2 * time.Hour))
	if err := h.s.JoinSide(ctx, debate.Support); !errors.Is(err, debate.ErrDebateClosed) {
		t.Fatalf("err = %v, want debate closed", err)
	}
	if len(h.remote.calls) != 0 {
		t.Errorf("calls = %v", h.remote.calls)
	}
}

func TestJoinForbiddenAdoptsServerSide(t *testing.T) {
	h := newHarness(hourDebate())
	h.remote.sides[me] = debate.Oppose

	err := h.s.JoinSide(ctx, debate.Support)
	if !errors.Is(err, debate.ErrAlreadyOnOtherSide) {
		t.Fatalf("err = %v, want already on other side", err)
	}
	if h.s.View().Side != debate.Oppose {
		t.Errorf("side = %q, want server's oppose", h.s.View().Side)
	}
	if h.s.View().DeadlineActive {
		t.Error("adopting a server side should not start a deadline")
	}
}

func TestJoinNetworkFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(hourDebate())
	h.remote.joinErr = apperr.New(apperr.Network, "join side", "connection reset")

	if err := h.s.JoinSide(ctx, debate.Support); !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	v := h.s.View()
	if v.Side != "" || v.DeadlineActive {
		t.Errorf("state changed after failure: %+v", v)
	}
}

func TestDeadlineClearedByPostBeforeExpiry(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.JoinSide(ctx, debate.Support); err != nil {
		t.Fatal(err)
	}
	if got := h.s.View().DeadlineLeft; got != ReplyWindow {
		t.Errorf("deadline left = %s, want %s", got, ReplyWindow)
	}
	if got := h.s.View().DeadlineShown; got != "05:00" {
		t.Errorf("deadline shown = %q, want 05:00", got)
	}

	h.clock.Set(t0.Add(4 * time.Minute))
	if _, err := h.s.SubmitArgument(ctx, "Cars crowd out people"); err != nil {
		t.Fatalf("SubmitArgument: %v", err)
	}
	if n := h.events.count(DeadlineCleared); n != 1 {
		t.Errorf("DeadlineCleared = %d, want 1", n)
	}

	for _, at := range []time.Duration{5 * time.Minute, 6 * time.Minute} {
		h.clock.Set(t0.Add(at))
		h.s.Tick(ctx, t0.Add(at))
	}
	if n := h.events.count(DeadlineExpired); n != 0 {
		t.Errorf("DeadlineExpired fired %d times after clearing", n)
	}
}

func TestDeadlineExpiresOnceAndDoesNotBlock(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.JoinSide(ctx, debate.Support); err != nil {
		t.Fatal(err)
	}

	for _, at := range []time.Duration{4 * time.Minute, 5 * time.Minute, 5*time.Minute + 30*time.Second} {
		h.clock.Set(t0.Add(at))
		h.s.Tick(ctx, t0.Add(at))
	}
	if n := h.events.count(DeadlineExpired); n != 1 {
		t.Fatalf("DeadlineExpired = %d, want 1", n)
	}
	if e, _ := h.events.last(DeadlineExpired); !e.At.Equal(t0.Add(5 * time.Minute)) {
		t.Errorf("expired at %s, want T0+5m", e.At.Sub(t0))
	}

	h.clock.Set(t0.Add(6 * time.Minute))
	if _, err := h.s.SubmitArgument(ctx, "Late but valid"); err != nil {
		t.Fatalf("SubmitArgument after expiry: %v", err)
	}
	if n := h.events.count(DeadlineCleared); n != 0 {
		t.Errorf("DeadlineCleared = %d after expiry, want 0", n)
	}
	if v := h.s.View(); v.Side != debate.Support {
		t.Errorf("side commitment lost: %q", v.Side)
	}
}

func TestDeadlineDisplay(t *testing.T) {
	d := StartDeadline(t0)
	if got := d.Display(t0.Add(90 * time.Second)); got != "03:30" {
		t.Errorf("Display = %q", got)
	}
	if d.Advance(t0.Add(5*time.Minute)) != true || d.Advance(t0.Add(6*time.Minute)) {
		t.Error("Advance should fire exactly once")
	}
	if got := d.Display(t0.Add(6 * time.Minute)); got != "00:00" {
		t.Errorf("Display after expiry = %q", got)
	}
	if d.Clear() {
		t.Error("Clear after expiry should report false")
	}
}

func TestSubmitRequiresSide(t *testing.T) {
	h := newHarness(hourDebate())
	if _, err := h.s.SubmitArgument(ctx, "No side yet"); !errors.Is(err, debate.ErrNoSide) {
		t.Fatalf("err = %v, want no side", err)
	}
	if h.mod.calls != 0 || h.remote.count("create") != 0 {
		t.Error("nothing should run before a side is held")
	}
	if _, err := h.s.SubmitArgument(ctx, "   "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty text err = %v", err)
	}
}

func TestSubmitOrdering(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.JoinSide(ctx, debate.Oppose); err != nil {
		t.Fatal(err)
	}
	h.remote.calls = nil

	a, err := h.s.SubmitArgument(ctx, "Delivery vans need roads")
	if err != nil {
		t.Fatalf("SubmitArgument: %v", err)
	}
	if a.Side != debate.Oppose {
		t.Errorf("posted on %q", a.Side)
	}
	if got := strings.Join(h.remote.calls, ","); got != "moderate,create,list" {
		t.Errorf("call order = %s", got)
	}
	if n := len(h.s.View().Arguments); n != 1 {
		t.Errorf("arguments = %d, want 1", n)
	}
}

func TestSubmitRejectedByModeration(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.JoinSide(ctx, debate.Support); err != nil {
		t.Fatal(err)
	}
	h.mod.reject = true

	if _, err := h.s.SubmitArgument(ctx, "You are stupid"); !errors.Is(err, apperr.ErrModerationRejected) {
		t.Fatalf("err = %v, want moderation rejected", err)
	}
	if h.remote.count("create") != 0 {
		t.Error("rejected text must not be posted")
	}

	h.mod.reject = false
	h.mod.err = apperr.New(apperr.Network, "moderate", "timeout")
	if _, err := h.s.SubmitArgument(ctx, "A fine point"); !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v, want network", err)
	}
	if h.remote.count("create") != 0 {
		t.Error("moderation failure must not be treated as safe")
	}
}

func TestDebateClosedEdgeFiresOnce(t *testing.T) {
	h := newHarness(hourDebate(),
		debate.Argument{ID: argID(1), Author: debate.UserRef{ID: rival}, Side: debate.Support, Upvotes: 5},
		debate.Argument{ID: argID(2), Author: debate.UserRef{ID: rival}, Side: debate.Oppose, Upvotes: 3},
	)

	for _, at := range []time.Duration{59 * time.Minute, time.Hour, time.Hour + time.Second, 2 * time.Hour} {
		h.clock.Set(t0.Add(at))
		h.s.Tick(ctx, t0.Add(at))
	}
	if n := h.events.count(DebateClosed); n != 1 {
		t.Fatalf("DebateClosed = %d, want 1", n)
	}
	e, _ := h.events.last(DebateClosed)
	if e.Winner != debate.WinnerSupport {
		t.Errorf("winner = %q, want support", e.Winner)
	}
	if !e.At.Equal(t0.Add(time.Hour)) {
		t.Errorf("closed at %s", e.At.Sub(t0))
	}

	if err := h.s.Vote(ctx, argID(1), debate.Upvote); !errors.Is(err, debate.ErrDebateClosed) {
		t.Errorf("vote after close = %v", err)
	}
	if err := h.s.JoinSide(ctx, debate.Support); !errors.Is(err, debate.ErrDebateClosed) {
		t.Errorf("join after close = %v", err)
	}
}

func TestSessionCreatedAfterClose(t *testing.T) {
	d := hourDebate()
	h := newHarness(d)
	h.clock.Set(t0.Add(3 * time.Hour))

	if h.s.View().Open {
		t.Fatal("session on an ended debate should be closed before any tick")
	}
	h.s.Tick(ctx, t0.Add(3*time.Hour))
	h.s.Tick(ctx, t0.Add(3*time.Hour+time.Second))
	if n := h.events.count(DebateClosed); n != 1 {
		t.Errorf("DebateClosed = %d, want 1", n)
	}
	if e, _ := h.events.last(DebateClosed); e.Winner != debate.Tie {
		t.Errorf("empty closed debate winner = %q, want tie", e.Winner)
	}
}

func TestPollSchedule(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	base := h.remote.count("list")

	h.s.Tick(ctx, t0.Add(29*time.Second))
	if h.remote.count("list") != base {
		t.Error("polled before the interval")
	}
	h.s.Tick(ctx, t0.Add(30*time.Second))
	if h.remote.count("list") != base+1 {
		t.Error("did not poll at the interval")
	}
	h.s.Tick(ctx, t0.Add(31*time.Second))
	if h.remote.count("list") != base+1 {
		t.Error("poll should be rescheduled from the last refresh")
	}
}

func TestTieWinner(t *testing.T) {
	h := newHarness(hourDebate(),
		debate.Argument{ID: argID(1), Side: debate.Support, Upvotes: 3},
		debate.Argument{ID: argID(2), Side: debate.Support, Upvotes: 1},
		debate.Argument{ID: argID(3), Side: debate.Oppose, Upvotes: 2},
		debate.Argument{ID: argID(4), Side: debate.Oppose, Upvotes: 2},
	)
	if err := h.s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if w := h.s.View().Winner; w != debate.Undecided {
		t.Errorf("open winner = %q", w)
	}
	h.clock.Set(t0.Add(time.Hour))
	if w := h.s.View().Winner; w != debate.Tie {
		t.Errorf("closed winner = %q, want tie", w)
	}
	if _, err := h.s.Summary(ctx); !errors.Is(err, debate.ErrTie) {
		t.Errorf("summary on tie = %v", err)
	}
	if h.sum.calls != 0 {
		t.Error("summary generated for a tie")
	}
}
