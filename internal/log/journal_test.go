package log

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// TestOpenJournal tests appending to a journal file.
func TestOpenJournal(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directory and appends", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "reports", "YaraScan.txt")

		j, err := OpenJournal(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.Log("first"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		j, err = OpenJournal(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.Log("second"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read journal: %v", err)
		}
		if string(data) != "first\nsecond\n" {
			t.Errorf("unexpected content %q", string(data))
		}
		if j.Path() != path {
			t.Errorf("unexpected path %s", j.Path())
		}
	})

	t.Run("log after close fails", func(t *testing.T) {
		t.Parallel()

		j, err := OpenJournal(filepath.Join(t.TempDir(), "log.txt"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.Close(); err != nil {
			t.Errorf("second close should be a no-op, got %v", err)
		}
		if err := j.Log("late"); !errors.Is(err, ErrJournalClosed) {
			t.Errorf("expected ErrJournalClosed, got %v", err)
		}
	})
}

// TestJournal_ConcurrentLog tests that concurrent messages never interleave.
func TestJournal_ConcurrentLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	j := NewJournal(&buf)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = j.Log(fmt.Sprintf("worker-%02d line-a\nworker-%02d line-b", i, i)) //nolint:errcheck // buffer writes cannot fail
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 40 {
		t.Fatalf("expected 40 lines, got %d", len(lines))
	}
	for i := 0; i < len(lines); i += 2 {
		prefix := strings.Fields(lines[i])[0]
		if !strings.HasPrefix(lines[i+1], prefix+" line-b") {
			t.Errorf("interleaved message at line %d: %q / %q", i, lines[i], lines[i+1])
		}
	}
}
