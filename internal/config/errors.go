package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoYaraPath is returned when no yara executable is configured.
	ErrNoYaraPath = errors.New("no yara executable configured")

	// ErrNoRulesDir is returned when no rules directory is configured.
	ErrNoRulesDir = errors.New("no rules directory configured")

	// ErrInvalidConcurrency is returned when concurrency is outside 1..100.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be between 1 and 100")

	// ErrNoScratchDir is returned when no scratch directory is configured.
	ErrNoScratchDir = errors.New("please provide a scratch directory")

	// ErrNoRunLogFile is returned when no run log location is configured.
	ErrNoRunLogFile = errors.New("please select a log file save location")

	// ErrNoErrorLogFile is returned when no error log location is configured.
	ErrNoErrorLogFile = errors.New("please select an error log file save location")

	// ErrNoRootTag is returned when tagging is enabled without a root tag.
	ErrNoRootTag = errors.New("please provide a root tag name")

	// ErrNoCustomField is returned when custom metadata is enabled without
	// a field name.
	ErrNoCustomField = errors.New("please provide a custom metadata field name")

	// ErrInvalidInterval is returned when a progress interval is not positive.
	ErrInvalidInterval = errors.New("invalid progress interval: must be positive")

	// ErrIncompleteBlobStore is returned when a blob store endpoint is set
	// without a bucket.
	ErrIncompleteBlobStore = errors.New("blob store endpoint requires a bucket")
)
