package main

import (
	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/output"
)

func newLeaderboardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("period")
			limit, _ := cmd.Flags().GetInt("limit")
			period, err := debate.ParsePeriod(raw)
			if err != nil {
				return err
			}
			client, err := a.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			users, err := client.Leaderboard(cmd.Context(), period, limit)
			if err != nil {
				return err
			}
			output.PrintLeaderboard(cmd.OutOrStdout(), period, users)
			return nil
		},
	}
	cmd.Flags().String("period", "all-time", "weekly, monthly or all-time")
	cmd.Flags().Int("limit", 50, "Number of participants")
	return cmd
}

func newMeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireUser(cmd.Context())
			if err != nil {
				return err
			}
			u, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			output.PrintUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}
