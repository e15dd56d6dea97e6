package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/sigscan/internal/model"
)

// Exporter materializes an item's binary content at dest.
type Exporter interface {
	Export(ctx context.Context, item model.Item, dest string) error
}

// Scanner runs the signature scanner with rs against the file at
// artifactPath. A returned error means the invocation itself failed; the
// result may still carry the output captured before the failure.
type Scanner interface {
	Scan(ctx context.Context, rs model.RuleSet, artifactPath string) (model.ScanResult, error)
}

// Annotator persists scan results onto items.
type Annotator interface {
	AddTag(ctx context.Context, item model.Item, label string) error

	// CustomField returns the current value of field and whether it is set.
	CustomField(ctx context.Context, item model.Item, field string) (string, bool, error)

	SetCustomField(ctx context.Context, item model.Item, field, value string) error
}

// Journal is an append-only, concurrency-safe message log.
type Journal interface {
	Log(message string) error
}

// Sink receives progress updates. SetStatus is called at the short status
// interval and LogStatus at the longer log interval and once at the end.
type Sink interface {
	SetStatus(summary string)
	LogStatus(summary string)
}

// ItemSource supplies the candidate items of a run.
type ItemSource interface {
	// ListSelected returns the selected items.
	ListSelected(ctx context.Context) ([]model.Item, error)

	// ExpandDescendants returns items together with all their descendants.
	ExpandDescendants(ctx context.Context, items []model.Item) ([]model.Item, error)
}

// Recorder observes every outcome with at least one match. It is called
// from the annotate stage only, so implementations need no locking.
type Recorder interface {
	Record(outcome model.ScanOutcome)
}

type nopJournal struct{}

func (nopJournal) Log(string) error { return nil }

type nopSink struct{}

func (nopSink) SetStatus(string) {}
func (nopSink) LogStatus(string) {}

type nopRecorder struct{}

func (nopRecorder) Record(model.ScanOutcome) {}

// protect calls fn and converts a panic into an error wrapping
// ErrCollaboratorPanic.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCollaboratorPanic, r)
		}
	}()
	return fn()
}
