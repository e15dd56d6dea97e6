package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/sigscan/internal/blobstore"
	"github.com/nao1215/sigscan/internal/catalog"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import a directory tree into the catalog",
		Long: `Import walks a directory and adds it to the catalog.

Directories become container items. Regular files become their children
with MD5 digest, size, detected MIME type, kind and extension. Symbolic
links and other special files are skipped.

Binaries are stored inline in the catalog, or in the object store when a
blobStore section is configured.

Examples:
  # Import an evidence folder
  sigscan import ./evidence

  # Import into a specific catalog
  sigscan import --catalog-dir ./case-42 ./evidence`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCmd,
	}

	cmd.Flags().IntP("workers", "w", runtime.NumCPU(),
		"Number of files analyzed concurrently")

	return cmd
}

// runImportCmd executes the import command.
func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := setupLogger(cmd, cfg)

	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}

	cat, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := context.Background()
	opts := []catalog.ImportOption{catalog.WithImportConcurrency(workers)}
	if cfg.BlobStore.Enabled() {
		store, err := blobstore.NewClient(cfg.BlobStore)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("object store unavailable: %w", err)
		}
		opts = append(opts, catalog.WithBlobUploader(store))
		logger.Info("storing binaries in object store", "bucket", store.Bucket())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Importing %s...\n", args[0])
	start := time.Now()

	summary, err := cat.Import(ctx, args[0], opts...)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(out, "Imported %d file(s) in %d container(s), %s, in %s\n",
		summary.Files, summary.Containers, humanize.Bytes(uint64(summary.Bytes)), //nolint:gosec // sizes are never negative
		time.Since(start).Round(time.Millisecond))
	if summary.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d special file(s)\n", summary.Skipped)
	}
	return nil
}
