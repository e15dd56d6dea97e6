package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sigscan/internal/model"
)

const (
	// DefaultConcurrency is the scan pool size used when none is configured.
	DefaultConcurrency = 4

	// MaxConcurrency is the largest accepted scan pool size.
	MaxConcurrency = 100

	// DefaultStatusInterval is the cadence of Sink.SetStatus updates.
	DefaultStatusInterval = 1 * time.Second

	// DefaultLogInterval is the cadence of Sink.LogStatus updates.
	DefaultLogInterval = 5 * time.Second
)

// Pipeline coordinates the export, scan and annotate stages of a run.
// A Pipeline holds configuration only; every call to Run creates fresh
// queues and counters, so a Pipeline can be reused across runs.
type Pipeline struct {
	exporter  Exporter
	scanner   Scanner
	annotator Annotator

	ruleSet     model.RuleSet
	concurrency int
	scratchDir  string

	// tagMatches enables one "<rootTag>|<rule>" tag per matched rule.
	tagMatches bool
	rootTag    string

	// customField, when non-empty, is the custom metadata field that
	// accumulates matched rule names across runs.
	customField string

	runLog   Journal
	errorLog Journal
	sink     Sink
	recorder Recorder

	statusInterval time.Duration
	logInterval    time.Duration

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRuleSet sets the rules every artifact is scanned with.
func WithRuleSet(rs model.RuleSet) Option {
	return func(p *Pipeline) {
		p.ruleSet = rs
	}
}

// WithConcurrency sets the number of scan workers.
// Values outside 1..MaxConcurrency make Run fail with ErrInvalidConcurrency.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.concurrency = n
	}
}

// WithScratchDir sets the directory artifacts are exported to.
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) {
		p.scratchDir = dir
	}
}

// WithTagging enables tagging matched items under rootTag.
func WithTagging(rootTag string) Option {
	return func(p *Pipeline) {
		p.tagMatches = true
		p.rootTag = rootTag
	}
}

// WithCustomMetadata enables recording matched rules in field.
func WithCustomMetadata(field string) Option {
	return func(p *Pipeline) {
		p.customField = field
	}
}

// WithRunLog sets the journal receiving match records.
func WithRunLog(j Journal) Option {
	return func(p *Pipeline) {
		if j != nil {
			p.runLog = j
		}
	}
}

// WithErrorLog sets the journal receiving per-item failures.
func WithErrorLog(j Journal) Option {
	return func(p *Pipeline) {
		if j != nil {
			p.errorLog = j
		}
	}
}

// WithSink sets the progress sink.
func WithSink(s Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithRecorder sets the observer of matched outcomes.
func WithRecorder(rec Recorder) Option {
	return func(p *Pipeline) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// WithProgressIntervals sets the status and log cadences of the progress
// reporter. Non-positive values keep the defaults.
func WithProgressIntervals(status, log time.Duration) Option {
	return func(p *Pipeline) {
		if status > 0 {
			p.statusInterval = status
		}
		if log > 0 {
			p.logInterval = log
		}
	}
}

// New creates a Pipeline. The annotator may be nil when neither tagging nor
// custom metadata is enabled.
func New(exporter Exporter, scanner Scanner, annotator Annotator, opts ...Option) *Pipeline {
	p := &Pipeline{
		exporter:       exporter,
		scanner:        scanner,
		annotator:      annotator,
		concurrency:    DefaultConcurrency,
		runLog:         nopJournal{},
		errorLog:       nopJournal{},
		sink:           nopSink{},
		recorder:       nopRecorder{},
		statusInterval: DefaultStatusInterval,
		logInterval:    DefaultLogInterval,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Validate checks the configuration without running anything.
func (p *Pipeline) Validate() error {
	if p.concurrency < 1 || p.concurrency > MaxConcurrency {
		return ErrInvalidConcurrency
	}
	if p.ruleSet.Empty() {
		return ErrNoRules
	}
	if p.scratchDir == "" {
		return ErrNoScratchDir
	}
	if p.exporter == nil {
		return fmt.Errorf("%w: exporter", ErrMissingCollaborator)
	}
	if p.scanner == nil {
		return fmt.Errorf("%w: scanner", ErrMissingCollaborator)
	}
	if (p.tagMatches || p.customField != "") && p.annotator == nil {
		return fmt.Errorf("%w: annotator", ErrMissingCollaborator)
	}
	return nil
}

// Run scans items and returns the final counters.
//
// Configuration problems are returned before any worker starts. Per-item
// failures never make Run fail; they are logged to the error journal and
// counted in Summary.Errored. Cancelling ctx aborts the run: every stage
// stops at its next suspension point, the returned summary has Aborted set
// and the error is nil. A cancellation that arrives after every stage has
// finished does not mark the run as aborted.
func (p *Pipeline) Run(ctx context.Context, items []model.Item) (model.Summary, error) {
	if err := p.Validate(); err != nil {
		return model.Summary{}, err
	}

	if _, err := os.Stat(p.scratchDir); os.IsNotExist(err) {
		p.logger.Info("creating scratch directory", "dir", p.scratchDir)
	}
	if err := os.MkdirAll(p.scratchDir, 0750); err != nil {
		return model.Summary{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	r := newRun(p, items)

	p.logger.Info("starting pipeline",
		"items", len(items),
		"concurrency", p.concurrency,
		"rules", len(p.ruleSet.Rules),
	)
	startTime := time.Now()

	r.logRunHeader()
	r.execute(ctx)
	summary := r.finish()

	p.logger.Info("pipeline finished",
		"exported", summary.Exported,
		"scanned", summary.Scanned,
		"matched", summary.Matched,
		"annotated", summary.Annotated,
		"errored", summary.Errored,
		"aborted", summary.Aborted,
		"elapsed", time.Since(startTime),
	)

	return summary, nil
}

// run is the state of one Run call.
type run struct {
	p        *Pipeline
	counters *Counters

	work          *Queue[model.Item]
	scanQueue     *Queue[model.ExportedArtifact]
	annotateQueue *Queue[model.ScanOutcome]
}

func newRun(p *Pipeline, items []model.Item) *run {
	r := &run{
		p:             p,
		counters:      NewCounters(len(items)),
		work:          NewQueue[model.Item](),
		scanQueue:     NewQueue[model.ExportedArtifact](),
		annotateQueue: NewQueue[model.ScanOutcome](),
	}
	for _, item := range items {
		r.work.Push(Data(item))
	}
	return r
}

// execute starts the progress reporter and all stages, waits for the export,
// scan and annotate stages to finish, then stops the reporter and sweeps
// leftover artifacts.
func (r *run) execute(ctx context.Context) {
	reporterCtx, stopReporter := context.WithCancel(ctx)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		r.report(reporterCtx)
	}()

	// The stages report per-item failures through the journals and never
	// return an error; the group only joins them.
	var g errgroup.Group
	g.Go(func() error {
		r.export(ctx)
		return nil
	})
	for worker := range r.p.concurrency {
		g.Go(func() error {
			r.scan(ctx, worker)
			return nil
		})
	}
	g.Go(func() error {
		r.annotate(ctx)
		return nil
	})
	_ = g.Wait()

	stopReporter()
	<-reporterDone

	if swept := r.sweep(); swept > 0 {
		r.p.logger.Info("removed leftover artifacts", "count", swept)
	}
}

// logRunHeader writes the selected rules to the run log.
func (r *run) logRunHeader() {
	names := r.p.ruleSet.Names()
	lines := make([]string, 0, len(names)+1)
	lines = append(lines, fmt.Sprintf("%d Selected Rules:", len(names)))
	for _, name := range names {
		lines = append(lines, "  "+name)
	}
	r.logRun(strings.Join(lines, "\n"))
}

// finish takes the final snapshot, closes the run log with the outcome of
// the run and pushes the final status to the sink.
func (r *run) finish() model.Summary {
	summary := r.counters.Snapshot()

	if summary.Aborted {
		r.logRun("\nUser Aborted!")
	} else {
		r.logRun("\nCompleted")
	}
	r.logRun(fmt.Sprintf("\n\nMatched Items: %d/%d", summary.Matched, summary.Total))

	r.p.sink.LogStatus(summary.String())
	return summary
}

// sweep deletes artifacts left in the scan queue. The queue only holds data
// after an abort, when the scan workers stopped before draining it.
func (r *run) sweep() int {
	removed := 0
	for {
		e, ok := r.scanQueue.TryPop()
		if !ok {
			return removed
		}
		if e.Done {
			continue
		}
		if r.removeArtifact(e.Value.Path) {
			removed++
		}
	}
}

// removeArtifact deletes an artifact file and reports whether it existed.
func (r *run) removeArtifact(path string) bool {
	err := os.Remove(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		r.p.logger.Warn("failed to remove artifact", "path", path, "error", err)
	}
	return false
}
