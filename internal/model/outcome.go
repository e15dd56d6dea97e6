package model

import (
	"fmt"
	"strings"
)

// ExportedArtifact is an item binary written to the scratch directory.
// Exactly one artifact exists per exported item and it is never shared
// between scan workers.
type ExportedArtifact struct {
	Item Item
	Path string
}

// ScanResult is the raw output of one scanner invocation.
type ScanResult struct {
	// Stdout holds the result lines. The first token of each line is the
	// name of a matched rule.
	Stdout []string

	// Stderr holds the error lines reported by the scanner.
	Stderr []string
}

// MatchedRules returns the first whitespace-delimited token of every
// non-blank result line, in output order.
func (r ScanResult) MatchedRules() []string {
	rules := make([]string, 0, len(r.Stdout))
	for _, line := range r.Stdout {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		rules = append(rules, fields[0])
	}
	return rules
}

// ScanOutcome is produced by a scan worker for every consumed artifact and
// is consumed exactly once by the annotate stage.
type ScanOutcome struct {
	Item         Item
	ArtifactPath string
	MatchedRules []string
	Stdout       []string
	Stderr       []string
}

// Matched reports whether at least one rule matched.
func (o ScanOutcome) Matched() bool {
	return len(o.MatchedRules) > 0
}

// ItemRecord is the descriptive block written to the run and error logs
// for an item that produced matches or errors.
type ItemRecord struct {
	Item         Item
	ArtifactPath string

	// ArtifactExists and ArtifactSize describe the artifact at scan time.
	ArtifactExists bool
	ArtifactSize   int64

	// StatError is set when the artifact could not be inspected.
	StatError error

	MatchedRules int
}

// String renders the record in the log layout, ending with the matched
// rule count header. Callers append the indented detail lines.
func (r ItemRecord) String() string {
	var sb strings.Builder
	md5 := r.Item.MD5
	if md5 == "" {
		md5 = "N/A"
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Item Path: %s\n", r.Item.Path())
	fmt.Fprintf(&sb, "GUID: %s\n", r.Item.GUID)
	fmt.Fprintf(&sb, "Kind: %s\n", r.Item.Kind)
	fmt.Fprintf(&sb, "Mime Type: %s\n", r.Item.MimeType)
	fmt.Fprintf(&sb, "MD5: %s\n", md5)
	fmt.Fprintf(&sb, "Audited Size: %d\n", r.Item.AuditedSize)
	fmt.Fprintf(&sb, "Exported Binary File Location: %s\n", r.ArtifactPath)
	if r.StatError != nil {
		fmt.Fprintf(&sb, "Error getting information about exported file: %v\n", r.StatError)
	} else {
		fmt.Fprintf(&sb, "File Exists: %t\n", r.ArtifactExists)
		fmt.Fprintf(&sb, "File Size: %d\n", r.ArtifactSize)
	}
	fmt.Fprintf(&sb, "%d Matched Rules:\n", r.MatchedRules)
	return sb.String()
}

// Indented joins lines with a leading tab on each, one per line.
func Indented(lines []string) string {
	indented := make([]string, len(lines))
	for i, l := range lines {
		indented[i] = "\t" + l
	}
	return strings.Join(indented, "\n")
}
