package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/sigscan/internal/model"
)

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRuleSet returns a non-empty rule set.
func testRuleSet() model.RuleSet {
	return model.RuleSet{
		Rules:    []model.Rule{{FilePath: "/rules/R1.yar"}},
		Manifest: "/rules/@include.list",
	}
}

// makeItems creates n items with binaries.
func makeItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			GUID:      fmt.Sprintf("guid-%03d", i),
			Name:      fmt.Sprintf("file-%03d.bin", i),
			PathNames: []string{"root", fmt.Sprintf("file-%03d.bin", i)},
			Kind:      "binary",
			MimeType:  "application/octet-stream",
			Extension: "bin",
			HasBinary: true,
		}
	}
	return items
}

// fakeExporter writes a small file per item. Items listed in fail return an
// error instead.
type fakeExporter struct {
	fail map[string]bool

	mu       sync.Mutex
	exported []string
}

func (f *fakeExporter) Export(_ context.Context, item model.Item, dest string) error {
	if f.fail[item.GUID] {
		return errors.New("binary not available")
	}
	if err := os.WriteFile(dest, []byte("content of "+item.GUID), 0600); err != nil {
		return err
	}
	f.mu.Lock()
	f.exported = append(f.exported, item.GUID)
	f.mu.Unlock()
	return nil
}

// fakeScanner returns configured output per artifact file name and records
// every scanned path.
type fakeScanner struct {
	// matches maps a GUID to the rules reported for it.
	matches map[string][]string
	// stderr maps a GUID to error lines reported for it.
	stderr map[string][]string
	// panics lists GUIDs whose scan panics.
	panics map[string]bool
	// scanFunc overrides the default behavior when set.
	scanFunc func(ctx context.Context, path string) (model.ScanResult, error)

	mu      sync.Mutex
	scanned []string
}

func (f *fakeScanner) Scan(ctx context.Context, _ model.RuleSet, path string) (model.ScanResult, error) {
	f.mu.Lock()
	f.scanned = append(f.scanned, path)
	f.mu.Unlock()

	if f.scanFunc != nil {
		return f.scanFunc(ctx, path)
	}

	guid := guidFromPath(path)
	if f.panics[guid] {
		panic("scanner exploded")
	}
	var result model.ScanResult
	for _, rule := range f.matches[guid] {
		result.Stdout = append(result.Stdout, rule+" "+path)
	}
	result.Stderr = f.stderr[guid]
	return result, nil
}

func (f *fakeScanner) scannedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scanned...)
}

func guidFromPath(path string) string {
	base := path[strings.LastIndex(path, string(os.PathSeparator))+1:]
	return strings.TrimSuffix(base, ".bin")
}

// fakeAnnotator keeps tags and custom fields in memory.
type fakeAnnotator struct {
	failTags bool

	mu     sync.Mutex
	tags   map[string][]string
	fields map[string]map[string]string
}

func newFakeAnnotator() *fakeAnnotator {
	return &fakeAnnotator{
		tags:   make(map[string][]string),
		fields: make(map[string]map[string]string),
	}
}

func (f *fakeAnnotator) AddTag(_ context.Context, item model.Item, label string) error {
	if f.failTags {
		return errors.New("tag store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags[item.GUID] = append(f.tags[item.GUID], label)
	return nil
}

func (f *fakeAnnotator) CustomField(_ context.Context, item model.Item, field string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.fields[item.GUID][field]
	return v, ok, nil
}

func (f *fakeAnnotator) SetCustomField(_ context.Context, item model.Item, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fields[item.GUID] == nil {
		f.fields[item.GUID] = make(map[string]string)
	}
	f.fields[item.GUID][field] = value
	return nil
}

func (f *fakeAnnotator) tagsOf(guid string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags := append([]string(nil), f.tags[guid]...)
	sort.Strings(tags)
	return tags
}

// memoryJournal records messages.
type memoryJournal struct {
	mu       sync.Mutex
	messages []string
}

func (j *memoryJournal) Log(message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.messages = append(j.messages, message)
	return nil
}

func (j *memoryJournal) text() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return strings.Join(j.messages, "\n")
}

// memorySink records status updates.
type memorySink struct {
	mu       sync.Mutex
	statuses []string
	logged   []string
}

func (s *memorySink) SetStatus(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, summary)
}

func (s *memorySink) LogStatus(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logged = append(s.logged, summary)
}

func (s *memorySink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statuses), len(s.logged)
}

// fakeSource is an in-memory ItemSource.
type fakeSource struct {
	selected    []model.Item
	descendants map[string][]model.Item
	err         error
}

func (f *fakeSource) ListSelected(context.Context) ([]model.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.selected, nil
}

func (f *fakeSource) ExpandDescendants(_ context.Context, items []model.Item) ([]model.Item, error) {
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		out = append(out, item)
		out = append(out, f.descendants[item.GUID]...)
	}
	return out, nil
}

// scratchEntries lists the files left in dir.
func scratchEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read scratch dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// sliceRecorder keeps the recorded outcomes.
type sliceRecorder struct {
	outcomes []model.ScanOutcome
}

func (r *sliceRecorder) Record(outcome model.ScanOutcome) {
	r.outcomes = append(r.outcomes, outcome)
}

// orderingSink checks the counter ordering of every status it receives.
type orderingSink struct {
	mu         sync.Mutex
	seen       int
	violations []string
}

func (s *orderingSink) SetStatus(summary string) { s.check(summary) }
func (s *orderingSink) LogStatus(summary string) { s.check(summary) }

func (s *orderingSink) check(summary string) {
	var total, exported, scanned, matched, annotated, errored int
	_, err := fmt.Sscanf(summary, "Exported: %d/%d, Scanned: %d, Matched: %d, Annotated: %d, Errors: %d",
		&exported, &total, &scanned, &matched, &annotated, &errored)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen++
	switch {
	case err != nil:
		s.violations = append(s.violations, fmt.Sprintf("unparsable status %q: %v", summary, err))
	case scanned > exported, exported > total, matched > scanned, annotated > matched:
		s.violations = append(s.violations, summary)
	}
}

// snapshotJournal records the counters as they are when each message is
// logged.
type snapshotJournal struct {
	mu        sync.Mutex
	counters  *Counters
	snapshots []model.Summary
}

func (j *snapshotJournal) Log(string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.counters != nil {
		j.snapshots = append(j.snapshots, j.counters.Snapshot())
	}
	return nil
}
