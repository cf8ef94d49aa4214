package session

import (
	"errors"
	"testing"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
)

func TestLoadInfersSideFromAuthoredArgument(t *testing.T) {
	mine := debate.Argument{ID: argID(1), Author: debate.UserRef{ID: me}, Side: debate.Oppose, CreatedAt: t0}
	h := newHarness(hourDebate(), mine)

	if err := h.s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if side := h.s.View().Side; side != debate.Oppose {
		t.Fatalf("side = %q, want oppose", side)
	}
	if h.remote.count("join:oppose") != 1 {
		t.Error("inferred side should be committed remotely")
	}
	if e, ok := h.events.last(SideRestored); !ok || e.Text != "argument" {
		t.Errorf("restore event = %+v", e)
	}
	if h.s.View().DeadlineActive {
		t.Error("inferred membership should not start a deadline")
	}
}

func TestLoadInferenceSurvivesCommitFailure(t *testing.T) {
	mine := debate.Argument{ID: argID(1), Author: debate.UserRef{ID: me}, Side: debate.Support, CreatedAt: t0}
	h := newHarness(hourDebate(), mine)
	h.remote.joinErr = apperr.New(apperr.Network, "join side", "unreachable")

	if err := h.s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if side := h.s.View().Side; side != debate.Support {
		t.Errorf("side = %q, want support", side)
	}
}

func TestLoadServerRecordWins(t *testing.T) {
	mine := debate.Argument{ID: argID(1), Author: debate.UserRef{ID: me}, Side: debate.Oppose, CreatedAt: t0}
	h := newHarness(hourDebate(), mine)
	h.remote.sides[me] = debate.Support

	if err := h.s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if side := h.s.View().Side; side != debate.Support {
		t.Errorf("side = %q, want server's support", side)
	}
	if h.remote.count("join:oppose") != 0 {
		t.Error("server record should not be overwritten")
	}
}

func TestLoadFallsBackToStore(t *testing.T) {
	h := newHarness(hourDebate())
	h.remote.sideErr = apperr.New(apperr.Network, "user side", "down")
	h.store.SaveMembership(ctx, debateID, me, debate.Oppose, t0.Add(-time.Hour))

	if err := h.s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if side := h.s.View().Side; side != debate.Oppose {
		t.Errorf("side = %q, want stored oppose", side)
	}
	if e, _ := h.events.last(SideRestored); e.Text != "store" {
		t.Errorf("restored from %q", e.Text)
	}
}

func TestLoadWithoutMembership(t *testing.T) {
	h := newHarness(hourDebate())
	if err := h.s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if side := h.s.View().Side; side != "" {
		t.Errorf("side = %q, want none", side)
	}
	if h.events.count(SideRestored) != 0 {
		t.Error("unexpected SideRestored")
	}
}

func TestLoadListFailure(t *testing.T) {
	h := newHarness(hourDebate())
	h.remote.listErr = apperr.New(apperr.Network, "list arguments", "down")
	if err := h.s.Load(ctx); !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	if h.events.count(RefreshFailed) != 1 {
		t.Error("expected RefreshFailed")
	}
}

func TestTeardownDiscardsInFlightResults(t *testing.T) {
	h := newHarness(hourDebate())
	h.remote.onJoin = h.s.Close

	if err := h.s.JoinSide(ctx, debate.Support); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if h.s.View().Side != "" {
		t.Error("join result applied after teardown")
	}
	if h.events.count(Joined) != 0 {
		t.Error("event fired after teardown")
	}

	h.s.Tick(ctx, t0.Add(2*time.Hour))
	if len(h.events.events) != 0 {
		t.Errorf("events after teardown: %+v", h.events.events)
	}
	if err := h.s.Refresh(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh after Close = %v", err)
	}
}

func TestRunStopsOnClose(t *testing.T) {
	h := newHarness(hourDebate())
	done := make(chan error, 1)
	go func() { done <- h.s.Run(ctx) }()
	h.s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
}

func TestSummaryGeneratedOnce(t *testing.T) {
	h := newHarness(hourDebate(),
		debate.Argument{ID: argID(1), Side: debate.Support, Text: "Clean air", Upvotes: 4},
		debate.Argument{ID: argID(2), Side: debate.Oppose, Text: "Commutes", Upvotes: 1},
	)
	if err := h.s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := h.s.Summary(ctx); !errors.Is(err, debate.ErrDebateOpen) {
		t.Fatalf("summary while open = %v", err)
	}

	h.clock.Set(t0.Add(time.Hour))
	for i := 0; i < 3; i++ {
		text, err := h.s.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary: %v", err)
		}
		if text != "Support won." {
			t.Errorf("text = %q", text)
		}
	}
	if h.sum.calls != 1 {
		t.Errorf("generator calls = %d, want 1", h.sum.calls)
	}
	if h.events.count(SummaryReady) != 1 {
		t.Errorf("SummaryReady = %d", h.events.count(SummaryReady))
	}
	if rec, ok, _ := h.store.Summary(ctx, debateID); !ok || rec.Winner != debate.Support {
		t.Errorf("stored summary = %+v, %v", rec, ok)
	}
	if h.s.View().Summary != "Support won." {
		t.Error("summary missing from view")
	}
}

func TestSummaryReusedFromStore(t *testing.T) {
	h := newHarness(hourDebate(), debate.Argument{ID: argID(1), Side: debate.Oppose, Upvotes: 1})
	if err := h.s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	h.store.summaries[debateID] = storeSummary("Recorded earlier.")
	h.clock.Set(t0.Add(2 * time.Hour))

	text, err := h.s.Summary(ctx)
	if err != nil || text != "Recorded earlier." {
		t.Fatalf("Summary = %q, %v", text, err)
	}
	if h.sum.calls != 0 {
		t.Error("generator called despite a stored summary")
	}
}
