package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/nao1215/sigscan/internal/model"
)

// ManifestName is the file name of the generated include manifest.
const ManifestName = "@include.list"

// Discover returns every rule file below dir, sorted by path.
func Discover(dir string) ([]model.Rule, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules directory: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("failed to open rules directory: %w", err)
	}

	var found []model.Rule
	err = godirwalk.Walk(abs, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if isRuleFile(de.Name()) {
				found = append(found, model.Rule{FilePath: path})
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk rules directory: %w", err)
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRulesFound, abs)
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].FilePath < found[j].FilePath
	})
	return found, nil
}

// isRuleFile matches "*.yar*": .yar, .yara and similar.
func isRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return strings.HasPrefix(ext, ".yar")
}

// Select picks rules by name, keeping the order of names. An empty names
// list selects every rule.
func Select(all []model.Rule, names []string) ([]model.Rule, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]model.Rule, len(all))
	for _, r := range all {
		if _, ok := byName[r.Name()]; !ok {
			byName[r.Name()] = r
		}
	}

	selected := make([]model.Rule, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, ok := seen[name]; ok {
			continue
		}
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
		}
		seen[name] = struct{}{}
		selected = append(selected, r)
	}
	return selected, nil
}

// WriteManifest writes the include manifest for rules into dir and returns
// the rule set referring to it. An existing manifest is replaced.
func WriteManifest(dir string, rules []model.Rule) (model.RuleSet, error) {
	if len(rules) == 0 {
		return model.RuleSet{}, ErrNoRulesSelected
	}

	var sb strings.Builder
	for _, r := range rules {
		fmt.Fprintf(&sb, "include \"%s\"\n", filepath.ToSlash(r.FilePath))
	}

	manifest := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(manifest, []byte(sb.String()), 0600); err != nil {
		return model.RuleSet{}, fmt.Errorf("failed to write rule manifest: %w", err)
	}

	return model.RuleSet{Rules: rules, Manifest: manifest}, nil
}
