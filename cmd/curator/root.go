package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/job-curator/internal/app"
	"github.com/job-curator/internal/config"
	"github.com/job-curator/internal/logging"
)

var (
	flagOutput   string
	flagLogLevel string
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "curator",
	Short:        "Curate the job listings catalog",
	Long:         "curator runs dedup, featured, expire and restore sweeps on demand and inspects catalog records.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagOutput != "json" && flagOutput != "yaml" {
			return fmt.Errorf("invalid --output value %q (want json or yaml)", flagOutput)
		}
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := loaded.Logging.Level
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		// results go to stdout, logs stay human readable on stderr
		logging.InitGlobalLogger(logging.ParseLogLevel(level), logging.FormatText)
		logging.GetGlobalLogger().SetOutput(os.Stderr)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(dedupCmd, refreshCmd, expireCmd, restoreCmd, historyCmd)
	rootCmd.AddCommand(searchCmd, scoreCmd, pinCmd, ingestCmd)
}

// withApp opens the pipeline for the duration of fn. The context is canceled
// on SIGINT or SIGTERM so a running sweep stops at its next record.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
