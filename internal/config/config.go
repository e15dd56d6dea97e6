package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sigscan"

	// DefaultYaraPath is resolved through PATH.
	DefaultYaraPath = "yara"

	// DefaultConcurrency is the number of concurrent yara processes.
	DefaultConcurrency = 4

	// MaxConcurrency is the upper bound accepted for Concurrency.
	MaxConcurrency = 100

	// DefaultRootTag is the parent tag of every rule match tag.
	DefaultRootTag = "Yara"

	// DefaultCustomField is the custom metadata field holding matched rules.
	DefaultCustomField = "Yara Matches"

	// DefaultStatusInterval is the cadence of the live status line.
	DefaultStatusInterval = 1 * time.Second

	// DefaultLogInterval is the cadence of logged status lines.
	DefaultLogInterval = 5 * time.Second

	// timestampLayout is used in default journal file names.
	timestampLayout = "20060102_150405"
)

// BlobStore configures the S3 compatible object store that holds item
// binaries. It is disabled when Endpoint is empty.
type BlobStore struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Prefix is prepended to every object key.
	Prefix string
}

// Enabled reports whether an object store is configured.
func (b BlobStore) Enabled() bool {
	return b.Endpoint != ""
}

// Config holds all configuration options of sigscan.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// YaraPath is the yara executable.
	YaraPath string

	// RulesDir is searched recursively for *.yar* rule files. The include
	// manifest is written there too.
	RulesDir string

	// Rules lists the rule names to scan with. Empty means every rule.
	Rules []string

	// Concurrency is the number of concurrent yara processes, 1 to 100.
	Concurrency int

	// ScratchDir receives exported binaries while they are scanned.
	ScratchDir string

	// RunLogFile receives one record per item with matches.
	RunLogFile string

	// ErrorLogFile receives one record per failed item.
	ErrorLogFile string

	// TagMatches enables one "<RootTag>|<rule>" tag per matched rule.
	TagMatches bool
	RootTag    string

	// RecordCustomMetadata enables accumulating matched rule names in
	// CustomField.
	RecordCustomMetadata bool
	CustomField          string

	// IncludeDescendants adds every descendant of the selected items.
	IncludeDescendants bool

	// CatalogDir holds the SQLite catalog.
	CatalogDir string

	StatusInterval time.Duration
	LogInterval    time.Duration

	// ReportFile, when set, receives a markdown report of the run.
	ReportFile string

	BlobStore BlobStore

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches diagnostics to JSON lines.
	LogJSON bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string
}

// NewConfig creates a Config with default values. Journal file names carry
// the current time.
func NewConfig() *Config {
	return newConfigAt(time.Now())
}

func newConfigAt(now time.Time) *Config {
	return &Config{
		YaraPath:             DefaultYaraPath,
		RulesDir:             filepath.Join(XDGConfigDir(), "rules"),
		Concurrency:          DefaultConcurrency,
		ScratchDir:           filepath.Join(XDGCacheDir(), "scratch"),
		RunLogFile:           DefaultRunLogFile(now),
		ErrorLogFile:         DefaultErrorLogFile(now),
		TagMatches:           true,
		RootTag:              DefaultRootTag,
		RecordCustomMetadata: true,
		CustomField:          DefaultCustomField,
		CatalogDir:           XDGDataDir(),
		StatusInterval:       DefaultStatusInterval,
		LogInterval:          DefaultLogInterval,
	}
}

// DefaultRunLogFile returns the default run log path for a run started at t.
func DefaultRunLogFile(t time.Time) string {
	return filepath.Join(ReportsDir(), fmt.Sprintf("YaraScan_%s.txt", t.Format(timestampLayout)))
}

// DefaultErrorLogFile returns the default error log path for a run started
// at t.
func DefaultErrorLogFile(t time.Time) string {
	return filepath.Join(ReportsDir(), fmt.Sprintf("YaraScanErrors_%s.txt", t.Format(timestampLayout)))
}

// ReportsDir is the default directory of run and error logs.
func ReportsDir() string {
	return filepath.Join(XDGDataDir(), "reports")
}

// XDGDataDir returns the XDG data directory for sigscan.
// On Linux: ~/.local/share/sigscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sigscan.
// On Linux: ~/.config/sigscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for sigscan.
// On Linux: ~/.cache/sigscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first violation.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.YaraPath) == "" {
		return ErrNoYaraPath
	}
	if strings.TrimSpace(c.RulesDir) == "" {
		return ErrNoRulesDir
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return ErrInvalidConcurrency
	}
	if strings.TrimSpace(c.ScratchDir) == "" {
		return ErrNoScratchDir
	}
	if strings.TrimSpace(c.RunLogFile) == "" {
		return ErrNoRunLogFile
	}
	if strings.TrimSpace(c.ErrorLogFile) == "" {
		return ErrNoErrorLogFile
	}
	if c.TagMatches && strings.TrimSpace(c.RootTag) == "" {
		return ErrNoRootTag
	}
	if c.RecordCustomMetadata && strings.TrimSpace(c.CustomField) == "" {
		return ErrNoCustomField
	}
	if c.StatusInterval <= 0 || c.LogInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.BlobStore.Enabled() && strings.TrimSpace(c.BlobStore.Bucket) == "" {
		return ErrIncompleteBlobStore
	}
	return nil
}

// ApplyFile overrides c with every value set in f.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	setString(&c.YaraPath, f.YaraPath)
	setString(&c.RulesDir, f.RulesDir)
	if len(f.Rules) > 0 {
		c.Rules = append([]string(nil), f.Rules...)
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	setString(&c.ScratchDir, f.ScratchDir)
	setString(&c.RunLogFile, f.RunLogFile)
	setString(&c.ErrorLogFile, f.ErrorLogFile)
	setBool(&c.TagMatches, f.TagMatches)
	setString(&c.RootTag, f.RootTag)
	setBool(&c.RecordCustomMetadata, f.RecordCustomMetadata)
	setString(&c.CustomField, f.CustomField)
	setBool(&c.IncludeDescendants, f.IncludeDescendants)
	setString(&c.CatalogDir, f.CatalogDir)
	if f.StatusInterval.Duration > 0 {
		c.StatusInterval = f.StatusInterval.Duration
	}
	if f.LogInterval.Duration > 0 {
		c.LogInterval = f.LogInterval.Duration
	}
	setString(&c.ReportFile, f.ReportFile)

	if bs := f.BlobStore; bs != nil {
		setString(&c.BlobStore.Endpoint, bs.Endpoint)
		setString(&c.BlobStore.Bucket, bs.Bucket)
		setString(&c.BlobStore.AccessKey, bs.AccessKey)
		setString(&c.BlobStore.SecretKey, bs.SecretKey)
		setBool(&c.BlobStore.UseSSL, bs.UseSSL)
		setString(&c.BlobStore.Prefix, bs.Prefix)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
