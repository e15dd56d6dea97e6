package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sigscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sigscan",
		Short: "Scan catalogued binaries with YARA rules",
		Long: `sigscan scans the binaries of a file catalog with YARA rules.

Directories are imported into a local catalog first. A scan exports the
selected binaries to a scratch directory, runs yara on each of them with a
pool of concurrent processes, and records the matches as tags and custom
metadata on the matched items. Every run is kept in the catalog history.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write diagnostic logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sigscan in current or home directory)")
	cmd.PersistentFlags().String("catalog-dir", "",
		"Directory holding the catalog (default: XDG data directory)")

	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewRulesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
