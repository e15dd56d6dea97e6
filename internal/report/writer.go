package report

import (
	"io"
	"sort"

	"github.com/nao1215/sigscan/internal/model"
)

// Writer renders runs.
type Writer interface {
	// Write renders one run with its matched items.
	Write(run model.RunRecord, matches []model.MatchedItem) (int, error)

	// WriteHistory renders a list of runs, most recent first.
	WriteHistory(runs []model.RunRecord) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status returns the outcome of a run as a short label.
func status(s model.Summary) string {
	switch {
	case s.Aborted:
		return "Aborted"
	case s.Errored > 0:
		return "Completed with errors"
	default:
		return "Completed"
	}
}

// kindGroup is the matched items of one item kind.
type kindGroup struct {
	kind    string
	matches []model.MatchedItem
}

// groupByKind groups matches by item kind. Groups are sorted by kind and
// keep the order of matches within a group.
func groupByKind(matches []model.MatchedItem) []kindGroup {
	index := map[string]int{}
	var groups []kindGroup
	for _, m := range matches {
		kind := m.Item.Kind
		if kind == "" {
			kind = "unrecognised"
		}
		i, ok := index[kind]
		if !ok {
			i = len(groups)
			index[kind] = i
			groups = append(groups, kindGroup{kind: kind})
		}
		groups[i].matches = append(groups[i].matches, m)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].kind < groups[b].kind
	})
	return groups
}

// ruleCounts returns how many items each rule matched, sorted by count
// descending and name ascending.
func ruleCounts(matches []model.MatchedItem) []RuleCount {
	counts := map[string]int{}
	for _, m := range matches {
		for _, rule := range m.Rules {
			counts[rule]++
		}
	}
	out := make([]RuleCount, 0, len(counts))
	for rule, n := range counts {
		out = append(out, RuleCount{Rule: rule, Items: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Items != out[b].Items {
			return out[a].Items > out[b].Items
		}
		return out[a].Rule < out[b].Rule
	})
	return out
}

// RuleCount is the number of items a rule matched.
type RuleCount struct {
	Rule  string `json:"rule"`
	Items int    `json:"items"`
}
