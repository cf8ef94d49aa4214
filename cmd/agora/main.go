package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/config"
	"github.com/lorenzotomasdiez/agora/internal/logging"
	"github.com/lorenzotomasdiez/agora/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp()
	root := newRootCmd(a)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "agora",
		Short:         "Follow and take part in timed two-sided debates",
		Long:          "Join a side, post moderated arguments, vote, and watch a debate's clock run down to its winner and closing summary.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("env-file", ".env", "Environment file to load (variables already set win)")
	pf.String("api-url", "", "Debate service URL (overrides AGORA_API_URL)")
	pf.String("token", "", "Bearer token (overrides AGORA_TOKEN)")
	pf.String("token-file", "", "Token file re-read on refresh (overrides AGORA_TOKEN_FILE)")
	pf.String("api-key", "", "OpenRouter API key (overrides OPENROUTER_API_KEY)")
	pf.String("model", "", "OpenRouter model for moderation and summaries (overrides AGORA_MODEL)")
	pf.String("cache-driver", "", "Local store driver: sqlite or postgres (overrides AGORA_CACHE_DRIVER)")
	pf.String("cache-dsn", "", "Local store DSN (overrides AGORA_CACHE_DSN)")
	pf.String("redis-url", "", "Redis URL for the debate cache (overrides AGORA_REDIS_URL)")
	pf.String("log-level", "", "Log level (overrides AGORA_LOG_LEVEL)")
	pf.String("output-dir", "", "Report directory (overrides AGORA_OUTPUT_DIR)")

	root.AddCommand(
		newDebatesCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newCategoriesCmd(a),
		newJoinCmd(a),
		newArgueCmd(a),
		newVoteCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newLeaderboardCmd(a),
		newModerateCmd(a),
		newSummaryCmd(a),
		newWatchCmd(a),
		newReportCmd(a),
		newMeCmd(a),
	)
	return root
}

// configure loads .env and the environment, then applies flag overrides.
func (a *app) configure(cmd *cobra.Command) error {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	overrides := map[string]*string{
		"api-url":      &cfg.APIURL,
		"token":        &cfg.Token,
		"token-file":   &cfg.TokenFile,
		"api-key":      &cfg.APIKey,
		"model":        &cfg.Model,
		"cache-driver": &cfg.CacheDriver,
		"cache-dsn":    &cfg.CacheDSN,
		"redis-url":    &cfg.RedisURL,
		"log-level":    &cfg.LogLevel,
		"output-dir":   &cfg.OutputDir,
	}
	for name, dst := range overrides {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	a.cfg = cfg
	a.log = logging.Init(cfg.LogLevel, a.stderr)
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	return nil
}

// describe renders an error for the terminal, adding a hint for the kinds a
// user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, apperr.ErrAuthRequired):
		return fmt.Sprintf("Error: %v (set AGORA_TOKEN or --token)", err)
	case errors.Is(err, apperr.ErrModerationRejected):
		return fmt.Sprintf("Rejected: %s", apperr.Message(err))
	case errors.Is(err, config.ErrNoAPIKey):
		return fmt.Sprintf("Error: %v (or pass --api-key)", err)
	}
	return fmt.Sprintf("Error: %v", err)
}
