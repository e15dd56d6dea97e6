package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the structure of the .sigscan configuration file. Unset fields
// keep their defaults.
type File struct {
	YaraPath             string         `yaml:"yaraPath,omitempty"`
	RulesDir             string         `yaml:"rulesDir,omitempty"`
	Rules                []string       `yaml:"rules,omitempty"`
	Concurrency          int            `yaml:"concurrency,omitempty"`
	ScratchDir           string         `yaml:"scratchDir,omitempty"`
	RunLogFile           string         `yaml:"runLogFile,omitempty"`
	ErrorLogFile         string         `yaml:"errorLogFile,omitempty"`
	TagMatches           *bool          `yaml:"tagMatches,omitempty"`
	RootTag              string         `yaml:"rootTag,omitempty"`
	RecordCustomMetadata *bool          `yaml:"recordCustomMetadata,omitempty"`
	CustomField          string         `yaml:"customField,omitempty"`
	IncludeDescendants   *bool          `yaml:"includeDescendants,omitempty"`
	CatalogDir           string         `yaml:"catalogDir,omitempty"`
	StatusInterval       Duration       `yaml:"statusInterval,omitempty"`
	LogInterval          Duration       `yaml:"logInterval,omitempty"`
	ReportFile           string         `yaml:"reportFile,omitempty"`
	BlobStore            *BlobStoreFile `yaml:"blobStore,omitempty"`
}

// BlobStoreFile is the blobStore section of the configuration file.
type BlobStoreFile struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	UseSSL    *bool  `yaml:"useSSL,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("1s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// IsZero lets omitempty skip unset durations.
func (d Duration) IsZero() bool {
	return d.Duration == 0
}
