package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorenzotomasdiez/agora/internal/api"
	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/auth"
	"github.com/lorenzotomasdiez/agora/internal/cache"
	"github.com/lorenzotomasdiez/agora/internal/config"
	"github.com/lorenzotomasdiez/agora/internal/metrics"
	"github.com/lorenzotomasdiez/agora/internal/models"
	"github.com/lorenzotomasdiez/agora/internal/moderation"
	"github.com/lorenzotomasdiez/agora/internal/openrouter"
	"github.com/lorenzotomasdiez/agora/internal/session"
	"github.com/lorenzotomasdiez/agora/internal/store"
	"github.com/lorenzotomasdiez/agora/internal/summary"
)

// app holds configuration and lazily built collaborators for one command
// invocation.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Recorder
	stderr  io.Writer
	now     func() time.Time

	client  *api.Client
	store   *store.Store
	llm     *openrouter.Client
	model   string
	closers []func() error
}

func newApp() *app {
	return &app{log: zerolog.Nop(), stderr: os.Stderr, now: time.Now}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Debug().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

// apiClient builds the debate service client with its credential session,
// the redis cache when configured, and metrics.
func (a *app) apiClient(ctx context.Context) (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	tok := auth.Token{Access: a.cfg.Token, Refresh: a.cfg.RefreshToken}
	var refresher auth.Refresher
	if a.cfg.TokenFile != "" {
		if tok.Access == "" {
			fromFile, err := auth.ReadTokenFile(a.cfg.TokenFile)
			if err != nil {
				return nil, err
			}
			tok = fromFile
		}
		refresher = auth.FileRefresher{Path: a.cfg.TokenFile}
	}
	sess := auth.NewSession(tok, refresher)
	sess.SetClock(a.now)
	a.closers = append(a.closers, func() error {
		sess.Teardown()
		return nil
	})

	opts := []api.Option{api.WithMetrics(a.metrics)}
	if c := cache.New(ctx, a.cfg.RedisURL); c.Enabled() {
		opts = append(opts, api.WithCache(c))
		a.closers = append(a.closers, c.Close)
	}
	a.client = api.NewClient(a.cfg.APIURL, sess, opts...)
	return a.client, nil
}

// localStore opens the observation store. Failure is not fatal; the
// session then relies on the server alone.
func (a *app) localStore(ctx context.Context) *store.Store {
	if a.store != nil {
		return a.store
	}
	st, err := store.Open(ctx, a.cfg.CacheDriver, a.cfg.CacheDSN)
	if err != nil {
		a.log.Warn().Err(err).Str("driver", a.cfg.CacheDriver).Msg("local store unavailable")
		return nil
	}
	a.store = st
	a.closers = append(a.closers, st.Close)
	return st
}

// openRouter returns the LLM client and the model to use with it.
func (a *app) openRouter(ctx context.Context) (*openrouter.Client, string, error) {
	if a.llm != nil {
		return a.llm, a.model, nil
	}
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, "", err
	}
	var opts []openrouter.Option
	if a.cfg.OpenRouterURL != "" {
		opts = append(opts, openrouter.WithBaseURL(a.cfg.OpenRouterURL))
	}
	a.llm = openrouter.NewClient(a.cfg.APIKey, opts...)
	a.model = models.Resolve(ctx, a.llm, a.cfg.Model)
	a.log.Debug().Str("model", a.model).Msg("llm model selected")
	return a.llm, a.model, nil
}

// moderator builds the local-then-remote moderation gate.
func (a *app) moderator(ctx context.Context, strict bool) (*moderation.Gate, error) {
	llm, model, err := a.openRouter(ctx)
	if err != nil {
		return nil, err
	}
	return moderation.NewGate(moderation.NewChecker(strict), moderation.NewLLMModerator(llm, model), a.metrics), nil
}

func (a *app) summarizer(ctx context.Context) (*summary.Generator, error) {
	llm, model, err := a.openRouter(ctx)
	if err != nil {
		return nil, err
	}
	return summary.NewGenerator(llm, model), nil
}

// needs selects the optional session collaborators a command uses.
type needs struct {
	moderation bool
	summary    bool
	onEvent    func(session.Event)
}

// openSession fetches the debate, resolves the current user and loads a
// session for them.
func (a *app) openSession(ctx context.Context, debateID string, n needs) (*session.Session, error) {
	client, err := a.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	d, err := client.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}

	userID := ""
	if client.Session().Authenticated() {
		userID = client.Session().UserID()
		if userID == "" {
			me, err := client.Me(ctx)
			if err != nil {
				return nil, fmt.Errorf("resolve current user: %w", err)
			}
			userID = me.ID
		}
	}

	deps := session.Deps{
		Remote:       client,
		Metrics:      a.metrics,
		Now:          a.now,
		PollInterval: a.cfg.PollInterval,
		OnEvent:      n.onEvent,
	}
	if st := a.localStore(ctx); st != nil {
		deps.Store = st
	}
	if n.moderation {
		gate, err := a.moderator(ctx, false)
		if err != nil {
			return nil, err
		}
		deps.Moderator = gate
	}
	if n.summary {
		gen, err := a.summarizer(ctx)
		if err != nil {
			return nil, err
		}
		deps.Summarizer = gen
	}

	s := session.New(d, userID, deps)
	a.closers = append(a.closers, func() error { s.Close(); return nil })
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// requireUser fails when no credential is configured.
func (a *app) requireUser(ctx context.Context) (*api.Client, error) {
	client, err := a.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	if !client.Session().Authenticated() {
		return nil, apperr.New(apperr.AuthRequired, "", "sign in required")
	}
	return client, nil
}
