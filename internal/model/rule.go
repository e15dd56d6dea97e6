package model

import (
	"path/filepath"
	"strings"
)

// Rule identifies one YARA rule file.
type Rule struct {
	// FilePath is the absolute path of the rule source file.
	FilePath string `json:"file_path"`
}

// Name returns the rule file base name without its extension.
func (r Rule) Name() string {
	base := filepath.Base(r.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RuleSet is the ordered selection of rules used for a whole run.
// Manifest is the opaque handle consumed by the scanner: the path of a
// generated include file that pulls in every selected rule.
type RuleSet struct {
	Rules    []Rule `json:"rules"`
	Manifest string `json:"manifest"`
}

// Names returns the names of the rules in selection order.
func (rs RuleSet) Names() []string {
	names := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		names[i] = r.Name()
	}
	return names
}

// Empty reports whether no rule is selected.
func (rs RuleSet) Empty() bool {
	return len(rs.Rules) == 0
}
