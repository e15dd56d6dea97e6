package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sigscan/internal/model"
)

// JSONWriter outputs runs in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunReport is the JSON document of one run.
type RunReport struct {
	Run     model.RunRecord `json:"run"`
	Status  string          `json:"status"`
	Rules   []RuleCount     `json:"rule_counts"`
	Matches []MatchEntry    `json:"matches"`
}

// MatchEntry is one matched item in a RunReport.
type MatchEntry struct {
	Item  model.Item `json:"item"`
	Path  string     `json:"path"`
	Rules []string   `json:"rules"`
}

// Write outputs the report of one run.
func (w *JSONWriter) Write(run model.RunRecord, matches []model.MatchedItem) (int, error) {
	entries := make([]MatchEntry, len(matches))
	for i, m := range matches {
		entries[i] = MatchEntry{Item: m.Item, Path: m.Item.Path(), Rules: m.Rules}
	}
	return w.writeJSON(RunReport{
		Run:     run,
		Status:  status(run.Summary),
		Rules:   ruleCounts(matches),
		Matches: entries,
	})
}

// WriteHistory outputs runs as a JSON array.
func (w *JSONWriter) WriteHistory(runs []model.RunRecord) (int, error) {
	if runs == nil {
		runs = []model.RunRecord{}
	}
	return w.writeJSON(runs)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output.
	data = append(data, '\n')

	return w.output.Write(data)
}
