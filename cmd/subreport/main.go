// Command subreport reconciles users with their subscriptions, prints the
// status tables and writes the JSON documents used downstream.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dmitrijs2005/subreport/internal/app"
	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/config"
	"github.com/dmitrijs2005/subreport/internal/flagx"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultHistoryLimit = 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subreport",
		Short:         "Subscription status report for the Supabase users table",
		Long:          "subreport joins users with their subscriptions, classifies each user, prints the summary and writes the snapshot, enrichment and filtered documents.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		appCmd("extract", "Fetch users and subscriptions, print the tables and write the snapshot",
			func(ctx context.Context, a *app.App, _ []string) error { return a.Extract(ctx) }),
		appCmd("enrich", "Attach sheets, menus and CSV files to subscribed users of the last snapshot",
			func(ctx context.Context, a *app.App, _ []string) error { return a.Enrich(ctx) }),
		appCmd("filter", "Keep subscribed users that have Google Sheets or CSV files",
			func(ctx context.Context, a *app.App, _ []string) error { return a.Filter(ctx) }),
		appCmd("run", "Run extract, enrich and filter once and record the run",
			func(ctx context.Context, a *app.App, _ []string) error {
				_, err := a.Run(ctx)
				return err
			}),
		appCmd("schedule", "Run the sequence every day at the configured time",
			func(ctx context.Context, a *app.App, _ []string) error { return a.Schedule(ctx) }),
		appCmd("history", "Show recent runs (-n limits the count)",
			func(ctx context.Context, a *app.App, args []string) error {
				n, err := historyLimit(args)
				if err != nil {
					return err
				}
				return a.History(ctx, n)
			}),
		versionCmd(),
	)

	root.SetUsageTemplate(root.UsageTemplate() + "\nConfiguration flags (all commands, after the command name):\n" + config.Usage())
	return root
}

// appCmd builds a command whose arguments are handed to config.LoadConfig
// as-is, so every command accepts the same configuration flags.
func appCmd(use, short string, run func(ctx context.Context, a *app.App, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}

			cfg, err := config.LoadConfig(args)
			if err != nil {
				return err
			}

			a := app.NewApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			defer func() {
				if err := a.Close(); err != nil {
					a.Logger().Warn(cmd.Context(), "close failed", "error", err)
				}
			}()
			return run(cmd.Context(), a, args)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subreport %s\n", Version)
			if BuildTime != "unknown" {
				fmt.Fprintf(out, "Built: %s\n", BuildTime)
			}
			if GitCommit != "unknown" {
				fmt.Fprintf(out, "Commit: %s\n", GitCommit)
			}
		},
	}
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		switch a {
		case "-h", "-help", "--help":
			return true
		case "--":
			return false
		}
	}
	return false
}

func historyLimit(args []string) (int, error) {
	v := flagx.StringFlag(args, "n")
	if v == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: -n must be a positive number, got %q", common.ErrConfig, v)
	}
	return n, nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if h := hint(err); h != "" {
		fmt.Fprintln(w, h)
	}
}

func hint(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Interrupted."
	case errors.Is(err, common.ErrConfig):
		return "Settings come from .env, the environment, -c <file.json> and flags; see subreport --help."
	case errors.Is(err, common.ErrSourceUnavailable):
		return "Check DATABASE_DSN or SUPABASE_URL and the network; -timeout and -retries tune the fetch."
	case errors.Is(err, common.ErrPersistence):
		return "Check that the output directory (-o) and the run history file (-runs-db) are writable."
	}
	return ""
}
