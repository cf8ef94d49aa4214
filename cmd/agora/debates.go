package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/api"
	"github.com/lorenzotomasdiez/agora/internal/output"
)

func newDebatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debates",
		Short: "List debates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			p := api.ListParams{}
			p.Page, _ = flags.GetInt("page")
			p.Limit, _ = flags.GetInt("limit")
			p.Category, _ = flags.GetString("category")
			p.Search, _ = flags.GetString("search")
			p.Tags, _ = flags.GetStringSlice("tags")
			p.Sort, _ = flags.GetString("sort")
			p.Order, _ = flags.GetString("order")
			if open, _ := flags.GetBool("open"); open {
				t := true
				p.Active = &t
			}
			if closed, _ := flags.GetBool("closed"); closed {
				f := false
				p.Active = &f
			}

			client, err := a.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			page, err := client.ListDebates(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			output.PrintDebates(out, page.Debates, a.now())
			if page.Total > len(page.Debates) {
				fmt.Fprintf(out, "\nShowing %d of %d (page %d)\n", len(page.Debates), page.Total, page.Page)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("page", 0, "Page number")
	f.Int("limit", 0, "Page size")
	f.String("category", "", "Only debates in this category")
	f.String("search", "", "Search titles and descriptions")
	f.StringSlice("tags", nil, "Only debates carrying these tags")
	f.Bool("open", false, "Only open debates")
	f.Bool("closed", false, "Only closed debates")
	f.String("sort", "", "Sort field, e.g. createdAt")
	f.String("order", "", "Sort order: asc or desc")
	cmd.MarkFlagsMutuallyExclusive("open", "closed")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <debate-id>",
		Short: "Show a debate with its arguments and standing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0], needs{})
			if err != nil {
				return err
			}
			output.PrintSnapshot(cmd.OutOrStdout(), s.View())
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a debate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			nd := api.NewDebate{}
			nd.Title, _ = flags.GetString("title")
			nd.Description, _ = flags.GetString("description")
			nd.Category, _ = flags.GetString("category")
			nd.Tags, _ = flags.GetStringSlice("tags")
			nd.ImageURL, _ = flags.GetString("image-url")
			dur, _ := flags.GetDuration("duration")
			nd.Duration = int64(dur / time.Second)

			client, err := a.requireUser(cmd.Context())
			if err != nil {
				return err
			}
			d, err := client.CreateDebate(cmd.Context(), nd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created debate %s: %s (ends %s)\n",
				d.ID, output.Bold(d.Title), d.EndTime().Local().Format(time.RFC1123))
			return nil
		},
	}
	f := cmd.Flags()
	f.String("title", "", "Debate title (required)")
	f.String("description", "", "Debate description")
	f.String("category", "", "Category (required)")
	f.StringSlice("tags", nil, "Tags")
	f.String("image-url", "", "Cover image URL")
	f.Duration("duration", 24*time.Hour, "How long the debate stays open")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("category")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List debate categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			cats, err := client.Categories(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cats, "\n"))
			return nil
		},
	}
}
