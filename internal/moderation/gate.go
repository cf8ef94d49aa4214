package moderation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/logging"
)

// Verdict is the binding moderation outcome.
type Verdict struct {
	IsSafe bool   `json:"isSafe"`
	Reason string `json:"reason"`
}

// Remote is the authoritative moderation service.
type Remote interface {
	Moderate(ctx context.Context, text string) (Verdict, error)
}

// Observer is notified of each verdict; stage is "local" or "remote".
type Observer interface {
	ObserveVerdict(stage string, safe bool)
}

// Gate combines the local fast path with the remote check. Text is accepted
// only once the remote service has said it is safe.
type Gate struct {
	local    *Checker
	remote   Remote
	observer Observer
	log      zerolog.Logger
}

// NewGate returns a gate. observer may be nil.
func NewGate(local *Checker, remote Remote, observer Observer) *Gate {
	if local == nil {
		local = NewChecker(false)
	}
	return &Gate{
		local:    local,
		remote:   remote,
		observer: observer,
		log:      logging.Component("moderation"),
	}
}

// Moderate returns the verdict for text. A remote failure is an error, never
// an implicit pass.
func (g *Gate) Moderate(ctx context.Context, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return Verdict{}, apperr.New(apperr.Validation, "moderate", "argument text is empty")
	}

	if r := g.local.Check(text); !r.Clean {
		g.observe("local", false)
		g.log.Debug().Str("severity", string(r.Severity)).Strs("terms", r.Banned).Msg("rejected locally")
		return Verdict{IsSafe: false, Reason: r.Message()}, nil
	}
	g.observe("local", true)

	if g.remote == nil {
		return Verdict{}, apperr.New(apperr.Network, "moderate", "remote moderation is not configured")
	}
	v, err := g.remote.Moderate(ctx, text)
	if err != nil {
		g.log.Warn().Err(err).Msg("remote moderation failed")
		return Verdict{}, apperr.Wrap(apperr.Network, "moderate", err)
	}
	g.observe("remote", v.IsSafe)
	if !v.IsSafe && v.Reason == "" {
		v.Reason = "Your argument was flagged as inappropriate."
	}
	return v, nil
}

// Check is Moderate reduced to an error: nil when safe, ModerationRejected
// carrying the reason otherwise.
func (g *Gate) Check(ctx context.Context, text string) error {
	v, err := g.Moderate(ctx, text)
	if err != nil {
		return err
	}
	if !v.IsSafe {
		return apperr.New(apperr.ModerationRejected, "moderate", v.Reason)
	}
	return nil
}

func (g *Gate) observe(stage string, safe bool) {
	if g.observer != nil {
		g.observer.ObserveVerdict(stage, safe)
	}
}
