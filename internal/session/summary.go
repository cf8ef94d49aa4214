package session

import (
	"context"
	"errors"

	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/store"
	"github.com/lorenzotomasdiez/agora/internal/summary"
)

// ErrNoSummarizer is returned when a summary is requested without a
// generator.
var ErrNoSummarizer = errors.New("session: no summary generator configured")

// Summary returns the closing summary of a decided debate, generating it on
// first request. Later requests, in this run or a later one with the same
// store, return the recorded text.
func (s *Session) Summary(ctx context.Context) (string, error) {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()

	now := s.deps.Now()
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return "", ErrClosed
	}
	if s.summary != "" {
		text := s.summary
		s.mu.Unlock()
		return text, nil
	}
	open := s.clock.Open(now)
	args := s.viewArgs()
	s.mu.Unlock()

	if open {
		return "", debate.ErrDebateOpen
	}
	winner := debate.Resolve(args, false)
	req, err := summary.ForOutcome(s.debate, args, winner)
	if err != nil {
		return "", err
	}

	text := ""
	if s.deps.Store != nil {
		if rec, ok, err := s.deps.Store.Summary(ctx, s.debate.ID); err == nil && ok {
			text = rec.Text
		}
	}
	if text == "" {
		if s.deps.Summarizer == nil {
			return "", ErrNoSummarizer
		}
		text, err = s.deps.Summarizer.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		if s.deps.Store != nil {
			rec, err := s.deps.Store.SaveSummary(ctx, store.Summary{
				DebateID:  s.debate.ID,
				Winner:    req.Winner,
				Text:      text,
				CreatedAt: now,
			})
			if err != nil {
				s.log.Warn().Err(err).Msg("could not record summary")
			} else {
				text = rec.Text
			}
		}
	}

	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return text, nil
	}
	s.summary = text
	s.mu.Unlock()
	s.emit(Event{Kind: SummaryReady, At: now, Winner: winner, Text: text})
	return text, nil
}
