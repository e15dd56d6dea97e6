package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/sigscan/internal/report"
)

// NewHistoryCmd creates the history command.
// It lists the runs recorded in the catalog or reports a single run.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded scan runs",
		Long: `History lists the scan runs recorded in the catalog, most recent first.

With a run ID it prints the full report of that run: counters, rules and
every matched item grouped by kind.

Examples:
  # List all runs
  sigscan history

  # Show the last five runs as JSON
  sigscan history -n 5 --json

  # Report one run
  sigscan history 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 0,
		"Show at most this many runs (0 shows all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("invalid limit %d", limit)
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	cat, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	var w report.Writer = report.NewMarkdownWriter(cmd.OutOrStdout())
	if jsonOutput {
		w = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	}

	ctx := context.Background()
	if len(args) == 1 {
		run, err := cat.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		matches, err := cat.RunMatches(ctx, run.ID)
		if err != nil {
			return err
		}
		_, err = w.Write(run, matches)
		return err
	}

	runs, err := cat.ListRuns(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	_, err = w.WriteHistory(runs)
	return err
}
