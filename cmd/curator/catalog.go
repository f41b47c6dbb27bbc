package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/job-curator/internal/app"
	"github.com/job-curator/internal/service"
)

var (
	flagSearch service.SearchInput
	flagUnpin  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-search active records by title and company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := flagSearch
		input.Query = strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			records, err := a.Catalog.Search(ctx, input)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), flagOutput, records)
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <id>",
	Short: "Explain the featured score of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			explanation, err := a.Catalog.ExplainScore(ctx, id)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), flagOutput, explanation)
		})
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <id>",
	Short: "Pin a record into the featured set",
	Long: `Pin a record so every featured refresh keeps it featured regardless of score.
Use --unpin to release it. The change takes effect on the next refresh.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Catalog.Pin(ctx, id, !flagUnpin); err != nil {
				return err
			}
			verb := "Pinned"
			if flagUnpin {
				verb = "Unpinned"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s record %d.\n", verb, id)
			return nil
		})
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}

func init() {
	searchCmd.Flags().StringVar(&flagSearch.Company, "company", "", "only records from this company")
	searchCmd.Flags().StringVar(&flagSearch.Source, "source", "", "only records from this source")
	searchCmd.Flags().Float64Var(&flagSearch.Threshold, "threshold", 0, "minimum fuzzy similarity (default 0.8)")
	searchCmd.Flags().IntVar(&flagSearch.Limit, "limit", 0, "maximum results (default 20)")

	pinCmd.Flags().BoolVar(&flagUnpin, "unpin", false, "release the pin instead")
}
