package pipeline

import "errors"

// Configuration errors. They are returned by Run before any worker starts.
var (
	// ErrInvalidConcurrency is returned when the scan pool size is outside
	// the 1..MaxConcurrency range.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be between 1 and 100")

	// ErrNoRules is returned when the rule set is empty.
	ErrNoRules = errors.New("no rules selected")

	// ErrNoScratchDir is returned when no scratch directory is configured.
	ErrNoScratchDir = errors.New("no scratch directory configured")

	// ErrMissingCollaborator is returned when a required collaborator
	// (exporter, scanner, or annotator when annotations are enabled) is nil.
	ErrMissingCollaborator = errors.New("missing pipeline collaborator")
)

// Per-item errors. They are logged and counted but never stop the run.
var (
	// ErrExport wraps failures of the export collaborator.
	ErrExport = errors.New("export failed")

	// ErrScanInvocation wraps failures of the scan collaborator.
	ErrScanInvocation = errors.New("scan invocation failed")

	// ErrAnnotation wraps failures of the annotation collaborator.
	ErrAnnotation = errors.New("annotation failed")

	// ErrCollaboratorPanic is wrapped around a panic recovered from a
	// collaborator call.
	ErrCollaboratorPanic = errors.New("collaborator panicked")
)
