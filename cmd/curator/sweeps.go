package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/job-curator/internal/app"
	"github.com/job-curator/internal/dedup"
	"github.com/job-curator/internal/types"
)

var (
	flagScope        string
	flagLimit        int
	flagMaxAgeDays   int
	flagProbeLimit   int
	flagHistoryKind  string
	flagHistoryLimit int
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Collapse duplicate active records",
	Long: `Group active records by scope and deactivate every duplicate except the best one.

--scope company groups by normalized company name; --scope dedupkey groups by
company and normalized title.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := parseScope(flagScope)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			summary, err := a.Curation.DedupSweep(ctx, scope)
			if summary != nil {
				if perr := printResult(cmd.OutOrStdout(), flagOutput, summary); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rescore active records and rewrite the featured set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			limit := flagLimit
			if limit <= 0 {
				limit = a.Config.Featured.Limit
			}
			result, err := a.Curation.RefreshFeatured(ctx, limit)
			if result != nil {
				if perr := printResult(cmd.OutOrStdout(), flagOutput, result); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Deactivate records past deadline, past max age, or with dead URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			maxAge := flagMaxAgeDays
			if maxAge <= 0 {
				maxAge = a.Config.Lifecycle.MaxAgeDays
			}
			probeLimit := flagProbeLimit
			if probeLimit < 0 {
				probeLimit = a.Config.Lifecycle.ProbeLimit
			}
			summary, err := a.Curation.ExpireSweep(ctx, maxAge, probeLimit)
			if summary != nil {
				if perr := printResult(cmd.OutOrStdout(), flagOutput, summary); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Re-probe records deactivated for a network reason",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			limit := flagLimit
			if limit <= 0 {
				limit = a.Config.Lifecycle.RestoreLimit
			}
			summary, err := a.Curation.RestoreSweep(ctx, limit)
			if summary != nil {
				if perr := printResult(cmd.OutOrStdout(), flagOutput, summary); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sweep runs from the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		var kind types.SweepKind
		if flagHistoryKind != "" {
			k, err := types.ParseSweepKind(flagHistoryKind)
			if err != nil {
				return err
			}
			kind = k
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if a.Audit == nil {
				return fmt.Errorf("sweep history needs ClickHouse (CLICKHOUSE_ENABLED=true)")
			}
			runs, err := a.Audit.RecentSweeps(ctx, kind, flagHistoryLimit)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), flagOutput, runs)
		})
	},
}

func parseScope(s string) (dedup.ScopeFunc, error) {
	switch s {
	case "company":
		return dedup.CompanyScope, nil
	case "dedupkey":
		return dedup.DedupKeyScope, nil
	default:
		return nil, fmt.Errorf("invalid --scope value %q (want company or dedupkey)", s)
	}
}

func init() {
	dedupCmd.Flags().StringVar(&flagScope, "scope", "company", "bucket records by company or dedupkey")

	refreshCmd.Flags().IntVar(&flagLimit, "limit", 0, "size of the featured set (default from FEATURED_LIMIT)")
	restoreCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum records to re-probe (default from LIFECYCLE_RESTORE_LIMIT)")

	expireCmd.Flags().IntVar(&flagMaxAgeDays, "max-age-days", 0, "deactivate records posted earlier than this (default from LIFECYCLE_MAX_AGE_DAYS)")
	expireCmd.Flags().IntVar(&flagProbeLimit, "probe-limit", -1, "maximum URLs to probe, 0 disables probing (default from LIFECYCLE_PROBE_LIMIT)")

	historyCmd.Flags().StringVar(&flagHistoryKind, "kind", "", "only show one sweep kind")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "number of runs to show")
}
