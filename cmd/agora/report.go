package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/output"
	"github.com/lorenzotomasdiez/agora/internal/session"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <debate-id>",
		Short: "Write debate.json, debate.md and session.log for a debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var rec *output.Writer
			s, err := a.openSession(ctx, args[0], needs{
				summary: a.cfg.APIKey != "",
				onEvent: func(e session.Event) {
					if rec != nil {
						rec.LogEvent(e)
					}
				},
			})
			if err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = output.GenerateSlug(s.Debate().Title)
			}
			dir, err := output.CreateOutputDir(a.cfg.OutputDir, name)
			if err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			rec = output.NewWriter(dir)
			rec.Log("report for " + s.Debate().ID)

			if a.cfg.APIKey != "" && !s.View().Open {
				if _, err := s.Summary(ctx); err != nil && !errors.Is(err, debate.ErrTie) {
					a.log.Warn().Err(err).Msg("summary unavailable")
				}
			}
			if err := writeReport(rec, s.View()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", dir)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Override output folder name (default: slug of the title)")
	return cmd
}

func writeReport(w *output.Writer, snap session.Snapshot) error {
	r := output.NewReport(snap)
	if err := w.WriteJSON(r); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	if err := w.WriteMarkdown(r); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	if err := w.WriteLog(); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}
