package main

import (
	"fmt"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/sigscan/internal/rules"
)

// NewRulesCmd creates the rules command.
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the available YARA rules",
		Long: `Rules lists every *.yar* file found below the rules directory and
marks the rules a scan would use with the current configuration.`,
		Args: cobra.NoArgs,
		RunE: runRulesCmd,
	}

	cmd.Flags().String("rules-dir", "",
		"Directory searched for rule files (default: XDG config directory)")

	return cmd
}

// runRulesCmd executes the rules command.
func runRulesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := stringFlag(cmd, "rules-dir", &cfg.RulesDir); err != nil {
		return err
	}

	all, err := rules.Discover(cfg.RulesDir)
	if err != nil {
		return err
	}
	selected, err := rules.Select(all, cfg.Rules)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Rule", "Selected", "File")
	for _, r := range all {
		mark := ""
		if slices.Contains(selected, r) {
			mark = "yes"
		}
		if err := table.Append(r.Name(), mark, r.FilePath); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s), %d selected\n", len(all), len(selected))
	return nil
}
