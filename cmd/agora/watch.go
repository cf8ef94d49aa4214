package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/output"
	"github.com/lorenzotomasdiez/agora/internal/session"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <debate-id>",
		Short: "Follow a debate live until it closes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd, args[0])
		},
	}
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides AGORA_METRICS_ADDR)")
	cmd.Flags().Bool("record", false, "Append events to session.log and write a report when the debate closes")
	return cmd
}

func (a *app) watch(cmd *cobra.Command, debateID string) error {
	ctx := cmd.Context()
	out := &lockedWriter{w: cmd.OutOrStdout()}

	addr := a.cfg.MetricsAddr
	if cmd.Flags().Changed("metrics-addr") {
		addr, _ = cmd.Flags().GetString("metrics-addr")
	}
	if addr != "" {
		stop := a.serveMetrics(addr)
		defer stop()
	}

	var rec *output.Writer
	refreshed := make(chan struct{}, 1)
	closed := make(chan struct{}, 1)
	authLost := make(chan error, 1)
	onEvent := func(e session.Event) {
		output.PrintEvent(out, e)
		if rec != nil {
			rec.LogEvent(e)
		}
		switch e.Kind {
		case session.Refreshed:
			notify(refreshed)
		case session.DebateClosed:
			notify(closed)
		case session.RefreshFailed:
			if errors.Is(e.Err, apperr.ErrAuthRequired) {
				select {
				case authLost <- e.Err:
				default:
				}
			}
		}
	}

	s, err := a.openSession(ctx, debateID, needs{summary: a.cfg.APIKey != "", onEvent: onEvent})
	if err != nil {
		return err
	}
	if record, _ := cmd.Flags().GetBool("record"); record {
		dir, err := output.CreateOutputDir(a.cfg.OutputDir, output.GenerateSlug(s.Debate().Title))
		if err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		rec = output.NewWriter(dir)
		rec.Log("watching " + s.Debate().ID)
	}

	output.PrintSnapshot(out, s.View())
	drain(refreshed)

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	status := time.NewTicker(time.Second)
	defer status.Stop()

	for {
		select {
		case <-refreshed:
			output.PrintSnapshot(out, s.View())
		case <-status.C:
			if snap := s.View(); snap.Open {
				output.PrintStatus(out, snap)
			}
		case err := <-authLost:
			s.Close()
			<-errc
			return err
		case <-closed:
			a.finishWatch(ctx, out, s, rec)
			s.Close()
			return ignoreCanceled(<-errc)
		case err := <-errc:
			return ignoreCanceled(err)
		}
	}
}

// finishWatch prints the final standing, the summary when one can be
// written, and the report when recording.
func (a *app) finishWatch(ctx context.Context, out io.Writer, s *session.Session, rec *output.Writer) {
	if a.cfg.APIKey != "" {
		if _, err := s.Summary(ctx); err != nil && !errors.Is(err, debate.ErrTie) {
			a.log.Warn().Err(err).Msg("summary unavailable")
		}
	}
	snap := s.View()
	output.PrintSnapshot(out, snap)
	if rec == nil {
		return
	}
	if err := writeReport(rec, snap); err != nil {
		a.log.Warn().Err(err).Msg("could not write report")
		return
	}
	fmt.Fprintf(out, "\nReport saved to: %s\n", rec.Dir())
}

func (a *app) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	a.log.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// lockedWriter serializes writes from the session loop and the command.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
