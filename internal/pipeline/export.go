package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	goerrors "github.com/go-errors/errors"

	"github.com/nao1215/sigscan/internal/model"
)

// export drains the work queue, exporting every item to the scratch
// directory and forwarding the artifacts to the scan queue.
//
// Whatever the reason the loop ends, exactly one termination marker per scan
// worker is pushed to the scan queue on exit.
func (r *run) export(ctx context.Context) {
	defer func() {
		for range r.p.concurrency {
			r.scanQueue.Push(Done[model.ExportedArtifact]())
		}
	}()

	for {
		if ctx.Err() != nil {
			r.p.logger.Warn("export stage aborted", "remaining", r.work.Len())
			r.counters.markAborted()
			return
		}

		e, ok := r.work.TryPop()
		if !ok {
			r.p.logger.Debug("export stage finished")
			return
		}
		item := e.Value
		path := filepath.Join(r.p.scratchDir, item.ArtifactName())

		err := protect(func() error {
			return r.p.exporter.Export(ctx, item, path)
		})
		if err != nil {
			if ctx.Err() != nil {
				// Aborted mid-export; the partial file is not an item failure.
				r.removeArtifact(path)
				r.counters.markAborted()
				return
			}
			r.exportFailed(item, err)
			continue
		}

		// Counted before the push so Scanned never exceeds Exported.
		r.counters.addExported()
		r.scanQueue.Push(Data(model.ExportedArtifact{Item: item, Path: path}))
	}
}

// exportFailed records an export failure. The item is dropped from the run.
func (r *run) exportFailed(item model.Item, err error) {
	message := fmt.Sprintf("Error while exporting item with GUID %s: %v", item.GUID, err)

	var traced *goerrors.Error
	if !errors.As(err, &traced) {
		traced = goerrors.Wrap(err, 1)
	}

	r.p.logger.Warn("export failed",
		"guid", item.GUID,
		"error", fmt.Errorf("%w: %w", ErrExport, err),
	)
	r.logError(message)
	r.logError(string(traced.Stack()))
	r.counters.addErrored()
}

// logError writes to the error journal. A journal failure is only reported
// through the diagnostic logger.
func (r *run) logError(message string) {
	if err := r.p.errorLog.Log(message); err != nil {
		r.p.logger.Error("failed to write error log", "error", err)
	}
}

// logRun writes to the run journal.
func (r *run) logRun(message string) {
	if err := r.p.runLog.Log(message); err != nil {
		r.p.logger.Error("failed to write run log", "error", err)
	}
}
