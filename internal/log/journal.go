package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrJournalClosed is returned by Log after Close.
var ErrJournalClosed = errors.New("journal is closed")

// Journal is an append-only text log. Every message is written on its own
// line. Journal is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	path   string
}

// OpenJournal opens path for appending, creating the file and its parent
// directory when missing.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{w: f, closer: f, path: path}, nil
}

// NewJournal creates a Journal writing to w. Close does not close w.
func NewJournal(w io.Writer) *Journal {
	return &Journal{w: w}
}

// Path returns the file the journal appends to, empty for writer journals.
func (j *Journal) Path() string {
	return j.path
}

// Log appends message followed by a newline.
func (j *Journal) Log(message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return ErrJournalClosed
	}
	if _, err := io.WriteString(j.w, message+"\n"); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// Close closes the underlying file. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.w = nil
	if j.closer == nil {
		return nil
	}
	err := j.closer.Close()
	j.closer = nil
	return err
}
