package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sigscan/internal/catalog"
	"github.com/nao1215/sigscan/internal/config"
	"github.com/nao1215/sigscan/internal/log"
)

// loadConfig builds the configuration of a command: defaults, then the
// configuration file, then the global flags.
//
// If the user names a configuration file that does not exist, loading
// fails. Without an explicit path a missing file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	found := config.FindConfigFile(path)
	switch {
	case found != "":
		f, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = found
	case path != "":
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	if err := boolFlag(cmd, "log-json", &cfg.LogJSON); err != nil {
		return nil, err
	}
	if err := stringFlag(cmd, "catalog-dir", &cfg.CatalogDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the diagnostic logger and installs it as default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	if cfg.LogJSON {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// openCatalog opens the catalog of cfg, creating it when missing.
func openCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	opts := catalog.DefaultOptions()
	opts.Logger = logger
	cat, err := catalog.Open(cfg.CatalogDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	logger.Debug("catalog opened", "path", cat.Path())
	return cat, nil
}

// The flag helpers copy a flag value into dst only when the user set the
// flag, so configuration file values survive unset flags.

func stringFlag(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func boolFlag(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func intFlag(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func durationFlag(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func stringSliceFlag(cmd *cobra.Command, name string, dst *[]string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
