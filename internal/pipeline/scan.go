package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/nao1215/sigscan/internal/model"
)

// scan is one scan pool worker. It consumes artifacts until it sees a
// termination marker or the run is aborted, then pushes exactly one marker
// to the annotate queue.
func (r *run) scan(ctx context.Context, worker int) {
	defer r.annotateQueue.Push(Done[model.ScanOutcome]())

	logger := r.p.logger.With("worker", worker)
	for {
		e, err := r.scanQueue.Pop(ctx)
		if err != nil {
			logger.Debug("scan worker aborted")
			r.counters.markAborted()
			return
		}
		if e.Done {
			logger.Debug("scan worker finished")
			return
		}
		if ctx.Err() != nil {
			r.removeArtifact(e.Value.Path)
			r.counters.markAborted()
			return
		}

		outcome, ok := r.scanArtifact(ctx, e.Value)
		if !ok {
			r.counters.markAborted()
			return
		}
		r.annotateQueue.Push(Data(outcome))
	}
}

// scanArtifact scans one artifact, logs matches and errors, deletes the
// artifact and returns the outcome. ok is false only when the scan was
// interrupted by an abort.
func (r *run) scanArtifact(ctx context.Context, artifact model.ExportedArtifact) (model.ScanOutcome, bool) {
	var result model.ScanResult
	scanErr := protect(func() error {
		var err error
		result, err = r.p.scanner.Scan(ctx, r.p.ruleSet, artifact.Path)
		return err
	})
	if scanErr != nil && ctx.Err() != nil {
		r.removeArtifact(artifact.Path)
		return model.ScanOutcome{}, false
	}

	matched := result.MatchedRules()
	outcome := model.ScanOutcome{
		Item:         artifact.Item,
		ArtifactPath: artifact.Path,
		MatchedRules: matched,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
	}

	isMatch := len(matched) > 0
	isError := len(result.Stderr) > 0 || scanErr != nil

	if len(result.Stdout) > 0 || isError {
		record := describe(artifact, len(matched)).String()

		if isMatch {
			r.logRun(record + model.Indented(matched))
		}

		if isError {
			lines := append([]string(nil), result.Stderr...)
			if scanErr != nil {
				lines = append(lines, fmt.Errorf("%w: %w", ErrScanInvocation, scanErr).Error())
				r.p.logger.Warn("scan failed", "guid", artifact.Item.GUID, "error", scanErr)
			}
			r.logError(record + model.Indented(lines))
		}
	}

	r.removeArtifact(artifact.Path)
	r.counters.addScanResult(isMatch, isError)
	return outcome, true
}

// describe builds the log record for an artifact, inspecting the file as it
// is at scan time.
func describe(artifact model.ExportedArtifact, matched int) model.ItemRecord {
	record := model.ItemRecord{
		Item:         artifact.Item,
		ArtifactPath: artifact.Path,
		MatchedRules: matched,
	}

	info, err := os.Stat(artifact.Path)
	switch {
	case err == nil:
		record.ArtifactExists = true
		record.ArtifactSize = info.Size()
	case os.IsNotExist(err):
		record.ArtifactExists = false
	default:
		record.StatError = err
	}
	return record
}
