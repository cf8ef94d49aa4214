package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/moderation"
	"github.com/lorenzotomasdiez/agora/internal/output"
)

func newModerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Check text against the moderation rules without posting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			strict, _ := cmd.Flags().GetBool("strict")
			localOnly, _ := cmd.Flags().GetBool("local")
			out := cmd.OutOrStdout()

			if sanitize, _ := cmd.Flags().GetBool("sanitize"); sanitize {
				fmt.Fprintln(out, moderation.Sanitize(text))
				return nil
			}

			var verdict moderation.Verdict
			if localOnly {
				r := moderation.NewChecker(strict).Check(text)
				a.metrics.ObserveVerdict("local", r.Clean)
				verdict = moderation.Verdict{IsSafe: r.Clean, Reason: r.Message()}
			} else {
				gate, err := a.moderator(cmd.Context(), strict)
				if err != nil {
					return err
				}
				verdict, err = gate.Moderate(cmd.Context(), text)
				if err != nil {
					return err
				}
			}

			if !verdict.IsSafe {
				return apperr.New(apperr.ModerationRejected, "moderate", verdict.Reason)
			}
			fmt.Fprintln(out, output.Success("Safe to post."))
			return nil
		},
	}
	cmd.Flags().String("text", "", "Text to check (required)")
	cmd.Flags().Bool("strict", false, "Also reject contextual terms")
	cmd.Flags().Bool("local", false, "Only run the local term check")
	cmd.Flags().Bool("sanitize", false, "Print the text with banned terms masked")
	cmd.MarkFlagRequired("text")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <debate-id>",
		Short: "Summarize why the winning side of a closed debate won",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0], needs{summary: true})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			text, err := s.Summary(cmd.Context())
			switch {
			case errors.Is(err, debate.ErrTie):
				output.PrintWinner(out, debate.Tie, s.View().Tally)
				fmt.Fprintln(out, "No summary is written for a tie.")
				return nil
			case err != nil:
				return err
			}
			snap := s.View()
			output.PrintWinner(out, snap.Winner, snap.Tally)
			fmt.Fprintln(out, text)
			return nil
		},
	}
}
