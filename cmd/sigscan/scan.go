package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/sigscan/internal/blobstore"
	"github.com/nao1215/sigscan/internal/catalog"
	"github.com/nao1215/sigscan/internal/config"
	"github.com/nao1215/sigscan/internal/log"
	"github.com/nao1215/sigscan/internal/model"
	"github.com/nao1215/sigscan/internal/pipeline"
	"github.com/nao1215/sigscan/internal/report"
	"github.com/nao1215/sigscan/internal/rules"
	"github.com/nao1215/sigscan/internal/yara"
)

// errScanAborted is returned after an interrupted run has been recorded.
var errScanAborted = errors.New("scan aborted")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [guid...]",
		Short: "Scan catalog items with YARA rules",
		Long: `Scan exports the binaries of the selected items, runs yara on each of
them and records the matches.

Items are selected by GUID, by catalog path (--path) or all at once (--all).
Containers and other items without binary are skipped. With --descendants
every item below a selected item is scanned too.

For every matched item the scan can:
- add one tag per matched rule, "<root-tag>|<rule>"
- append the matched rule names to a custom metadata field

Items with matches are written to the run log, failed items to the error
log. Press Ctrl+C to abort; the interrupted run is still recorded.

Examples:
  # Scan everything with every rule in the rules directory
  sigscan scan --all

  # Scan one folder of the catalog with two rules and 8 yara processes
  sigscan scan --path evidence/mail -r Emotet -r UPX -n 8

  # Scan two items and everything below them, writing a markdown report
  sigscan scan -d -o report.md 3f2a... 9b1c...`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Selection flags
	cmd.Flags().StringP("path", "p", "",
		"Scan the item at this catalog path and everything below it")
	cmd.Flags().BoolP("all", "a", false,
		"Scan every item of the catalog")
	cmd.Flags().BoolP("descendants", "d", false,
		"Also scan every descendant of the selected items")

	// Scanner flags
	cmd.Flags().String("yara", config.DefaultYaraPath,
		"yara executable")
	cmd.Flags().String("rules-dir", "",
		"Directory searched for *.yar* rule files (default: XDG config directory)")
	cmd.Flags().StringSliceP("rule", "r", nil,
		"Rule to scan with, by file name without extension (repeatable, default: all)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		fmt.Sprintf("Number of concurrent yara processes (1-%d)", config.MaxConcurrency))
	cmd.Flags().String("scratch-dir", "",
		"Directory receiving exported binaries (default: XDG cache directory)")

	// Annotation flags
	cmd.Flags().Bool("tag", true,
		"Tag matched items with one tag per matched rule")
	cmd.Flags().String("root-tag", config.DefaultRootTag,
		"Parent tag of the rule tags")
	cmd.Flags().Bool("custom-metadata", true,
		"Record matched rule names in a custom metadata field")
	cmd.Flags().String("custom-field", config.DefaultCustomField,
		"Custom metadata field receiving matched rule names")

	// Log and report flags
	cmd.Flags().String("run-log", "",
		"Run log file (default: timestamped file in the XDG data directory)")
	cmd.Flags().String("error-log", "",
		"Error log file (default: timestamped file in the XDG data directory)")
	cmd.Flags().Duration("status-interval", config.DefaultStatusInterval,
		"Interval of the live status line")
	cmd.Flags().Duration("log-interval", config.DefaultLogInterval,
		"Interval of logged status lines")
	cmd.Flags().StringP("output", "o", "",
		"Write a report of the run to this file")
	cmd.Flags().BoolP("json", "j", false,
		"Write the report as JSON instead of Markdown")

	return cmd
}

// scanRequest is what a scan command asks for beyond the configuration.
type scanRequest struct {
	selection  catalog.Selection
	jsonReport bool
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, req, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if req.selection.Empty() {
		return errors.New("no items selected (pass GUIDs, --path or --all)")
	}

	logger := setupLogger(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, aborting scan...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, req, logger)
}

// buildScanConfig creates the configuration of a scan from the
// configuration file and the command flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, scanRequest, error) {
	var req scanRequest

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, req, err
	}

	setters := []error{
		stringFlag(cmd, "yara", &cfg.YaraPath),
		stringFlag(cmd, "rules-dir", &cfg.RulesDir),
		stringSliceFlag(cmd, "rule", &cfg.Rules),
		intFlag(cmd, "concurrency", &cfg.Concurrency),
		stringFlag(cmd, "scratch-dir", &cfg.ScratchDir),
		boolFlag(cmd, "tag", &cfg.TagMatches),
		stringFlag(cmd, "root-tag", &cfg.RootTag),
		boolFlag(cmd, "custom-metadata", &cfg.RecordCustomMetadata),
		stringFlag(cmd, "custom-field", &cfg.CustomField),
		boolFlag(cmd, "descendants", &cfg.IncludeDescendants),
		stringFlag(cmd, "run-log", &cfg.RunLogFile),
		stringFlag(cmd, "error-log", &cfg.ErrorLogFile),
		durationFlag(cmd, "status-interval", &cfg.StatusInterval),
		durationFlag(cmd, "log-interval", &cfg.LogInterval),
		stringFlag(cmd, "output", &cfg.ReportFile),
	}
	if err := errors.Join(setters...); err != nil {
		return nil, req, err
	}

	req.selection.GUIDs = args
	if req.selection.PathPrefix, err = cmd.Flags().GetString("path"); err != nil {
		return nil, req, err
	}
	if req.selection.All, err = cmd.Flags().GetBool("all"); err != nil {
		return nil, req, err
	}
	if req.jsonReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, req, err
	}

	return cfg, req, nil
}

// runScan executes one scan run and records it.
func runScan(ctx context.Context, out, errOut io.Writer, cfg *config.Config, req scanRequest, logger *slog.Logger) error {
	cat, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	items, err := pipeline.ResolveItems(ctx, cat.Source(req.selection), cfg.IncludeDescendants)
	if err != nil {
		return err
	}

	ruleSet, err := buildRuleSet(cfg)
	if err != nil {
		return err
	}

	scanner := yara.NewScanner(cfg.YaraPath, yara.WithLogger(logger))
	yaraVersion, err := scanner.Version(ctx)
	if err != nil {
		return fmt.Errorf("yara is not usable (check --yara): %w", err)
	}
	logger.Info("using yara", "path", cfg.YaraPath, "version", yaraVersion)

	exporter, err := newExporter(ctx, cat, cfg)
	if err != nil {
		return err
	}

	runLog, err := log.OpenJournal(cfg.RunLogFile)
	if err != nil {
		return err
	}
	defer runLog.Close()
	errorLog, err := log.OpenJournal(cfg.ErrorLogFile)
	if err != nil {
		return err
	}
	defer errorLog.Close()

	collector := &matchCollector{}
	p := pipeline.New(exporter, scanner, cat, pipelineOptions(cfg, ruleSet, runLog, errorLog, newTerminalSink(errOut), collector, logger)...)

	fmt.Fprintf(out, "Scanning %d item(s) with %d rule(s) using %d yara process(es)...\n",
		len(items), len(ruleSet.Rules), cfg.Concurrency)

	started := time.Now()
	summary, err := p.Run(ctx, items)
	if err != nil {
		return err
	}

	record := model.RunRecord{
		ID:          uuid.NewString(),
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Concurrency: cfg.Concurrency,
		Rules:       ruleSet.Names(),
		Summary:     summary,
	}
	matches := collector.matches

	// The run is recorded even when ctx was cancelled by an abort.
	if err := cat.SaveRun(context.WithoutCancel(ctx), record, matches); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	printSummary(out, record, runLog.Path(), errorLog.Path())

	if cfg.ReportFile != "" {
		if err := writeReport(cfg.ReportFile, req.jsonReport, record, matches); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report: %s\n", cfg.ReportFile)
	}

	if summary.Aborted {
		return errScanAborted
	}
	return nil
}

// buildRuleSet discovers the rules, applies the selection and writes the
// include manifest.
func buildRuleSet(cfg *config.Config) (model.RuleSet, error) {
	all, err := rules.Discover(cfg.RulesDir)
	if err != nil {
		return model.RuleSet{}, err
	}
	selected, err := rules.Select(all, cfg.Rules)
	if err != nil {
		return model.RuleSet{}, err
	}
	return rules.WriteManifest(cfg.RulesDir, selected)
}

func pipelineOptions(cfg *config.Config, rs model.RuleSet, runLog, errorLog pipeline.Journal,
	sink pipeline.Sink, rec pipeline.Recorder, logger *slog.Logger) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRuleSet(rs),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithScratchDir(cfg.ScratchDir),
		pipeline.WithRunLog(runLog),
		pipeline.WithErrorLog(errorLog),
		pipeline.WithSink(sink),
		pipeline.WithRecorder(rec),
		pipeline.WithProgressIntervals(cfg.StatusInterval, cfg.LogInterval),
	}
	if cfg.TagMatches {
		opts = append(opts, pipeline.WithTagging(cfg.RootTag))
	}
	if cfg.RecordCustomMetadata {
		opts = append(opts, pipeline.WithCustomMetadata(cfg.CustomField))
	}
	return opts
}

// newExporter returns the catalog itself, or the catalog backed by the
// object store when one is configured.
func newExporter(ctx context.Context, cat *catalog.Catalog, cfg *config.Config) (pipeline.Exporter, error) {
	if !cfg.BlobStore.Enabled() {
		return cat, nil
	}
	store, err := blobstore.NewClient(cfg.BlobStore)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("object store unavailable: %w", err)
	}
	return &storeFallback{catalog: cat, store: store}, nil
}

// storeFallback exports inline binaries from the catalog and everything
// else from the object store.
type storeFallback struct {
	catalog *catalog.Catalog
	store   *blobstore.Client
}

func (e *storeFallback) Export(ctx context.Context, item model.Item, dest string) error {
	err := e.catalog.Export(ctx, item, dest)
	if errors.Is(err, catalog.ErrNoBinary) {
		return e.store.Export(ctx, item, dest)
	}
	return err
}

// matchCollector keeps the matched items of a run for the run history.
type matchCollector struct {
	matches []model.MatchedItem
}

func (c *matchCollector) Record(outcome model.ScanOutcome) {
	seen := make(map[string]bool, len(outcome.MatchedRules))
	names := make([]string, 0, len(outcome.MatchedRules))
	for _, rule := range outcome.MatchedRules {
		if seen[rule] {
			continue
		}
		seen[rule] = true
		names = append(names, rule)
	}
	c.matches = append(c.matches, model.MatchedItem{Item: outcome.Item, Rules: names})
}

// printSummary prints the final counters of a run.
func printSummary(out io.Writer, run model.RunRecord, runLog, errorLog string) {
	s := run.Summary
	state := color.New(color.FgGreen, color.Bold)
	label := "Scan completed"
	switch {
	case s.Aborted:
		state = color.New(color.FgYellow, color.Bold)
		label = "Scan aborted"
	case s.Errored > 0:
		state = color.New(color.FgRed, color.Bold)
		label = "Scan completed with errors"
	}

	fmt.Fprintln(out)
	state.Fprintf(out, "%s in %s\n", label, run.Duration().Round(time.Millisecond))
	fmt.Fprintln(out, s.String())
	fmt.Fprintf(out, "Run:       %s\n", run.ID)
	fmt.Fprintf(out, "Run log:   %s\n", runLog)
	fmt.Fprintf(out, "Error log: %s\n", errorLog)
}

// writeReport writes the report of a run to path.
func writeReport(path string, asJSON bool, run model.RunRecord, matches []model.MatchedItem) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports name evidence files, so they are readable by the owner only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided report path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	var w report.Writer = report.NewMarkdownWriter(f)
	if asJSON {
		w = report.NewJSONWriter(f, report.WithPrettyPrint())
	}
	if _, err := w.Write(run, matches); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
