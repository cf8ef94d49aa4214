package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/output"
	"github.com/lorenzotomasdiez/agora/internal/session"
)

func newJoinCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <debate-id> <support|oppose>",
		Short: "Join a side of a debate (this cannot be changed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := debate.ParseSide(args[1])
			if err != nil {
				return err
			}
			if _, err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			s, err := a.openSession(cmd.Context(), args[0], needs{onEvent: func(e session.Event) { output.PrintEvent(out, e) }})
			if err != nil {
				return err
			}
			if held := s.View().Side; held != "" {
				if held != side {
					return debate.ErrAlreadyOnOtherSide
				}
				fmt.Fprintf(out, "Already on %s.\n", output.SideLabel(held))
				return nil
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				fmt.Fprintf(out, "Join %s on %q? You cannot switch sides later. [y/N] ", side, s.Debate().Title)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if err := s.JoinSide(cmd.Context(), side); err != nil {
				return err
			}
			fmt.Fprintf(out, "You have %s to post your first argument.\n", session.ReplyWindow)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newArgueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "argue <debate-id>",
		Short: "Post a moderated argument on your side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			if _, err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context(), args[0], needs{moderation: true})
			if err != nil {
				return err
			}
			arg, err := s.SubmitArgument(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted argument %s for %s.\n", arg.ID, output.SideLabel(arg.Side))
			return nil
		},
	}
	cmd.Flags().String("text", "", "Argument text (required)")
	cmd.MarkFlagRequired("text")
	return cmd
}

func newVoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote <argument-id> <up|down>",
		Short: "Vote on an argument; voting the same way again removes the vote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := debate.ParseVote(args[1])
			if err != nil {
				return err
			}
			s, err := a.argumentSession(cmd, args[0], needs{})
			if err != nil {
				return err
			}
			if err := s.Vote(cmd.Context(), args[0], v); err != nil {
				return err
			}
			for _, arg := range s.View().Arguments {
				if arg.ID == args[0] {
					output.PrintArgument(cmd.OutOrStdout(), arg, a.now())
				}
			}
			return nil
		},
	}
	cmd.Flags().String("debate", "", "Debate the argument belongs to (required)")
	cmd.MarkFlagRequired("debate")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <argument-id>",
		Short: "Edit your argument within five minutes of posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			s, err := a.argumentSession(cmd, args[0], needs{moderation: true})
			if err != nil {
				return err
			}
			if err := s.EditArgument(cmd.Context(), args[0], text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated argument %s.\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("debate", "", "Debate the argument belongs to (required)")
	cmd.Flags().String("text", "", "New argument text (required)")
	cmd.MarkFlagRequired("debate")
	cmd.MarkFlagRequired("text")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <argument-id>",
		Short: "Delete your argument within five minutes of posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.argumentSession(cmd, args[0], needs{})
			if err != nil {
				return err
			}
			if err := s.DeleteArgument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted argument %s.\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("debate", "", "Debate the argument belongs to (required)")
	cmd.MarkFlagRequired("debate")
	return cmd
}

// argumentSession validates an argument id and opens a signed-in session on
// the debate named by --debate.
func (a *app) argumentSession(cmd *cobra.Command, argumentID string, n needs) (*session.Session, error) {
	if err := debate.CheckID("argument", argumentID); err != nil {
		return nil, err
	}
	debateID, _ := cmd.Flags().GetString("debate")
	if debateID == "" {
		return nil, apperr.New(apperr.Validation, "argument", "--debate is required")
	}
	if _, err := a.requireUser(cmd.Context()); err != nil {
		return nil, err
	}
	return a.openSession(cmd.Context(), debateID, n)
}
