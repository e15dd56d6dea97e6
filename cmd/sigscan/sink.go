package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// terminalSink shows scan progress on a terminal. The status line is
// redrawn in place and only shown on a terminal; logged status lines are
// always written.
type terminalSink struct {
	mu     sync.Mutex
	w      io.Writer
	live   bool
	status *color.Color
	stamp  *color.Color
}

func newTerminalSink(w io.Writer) *terminalSink {
	live := false
	if f, ok := w.(*os.File); ok {
		live = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &terminalSink{
		w:      w,
		live:   live,
		status: color.New(color.FgCyan),
		stamp:  color.New(color.Faint),
	}
}

func (s *terminalSink) SetStatus(summary string) {
	if !s.live {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Fprintf(s.w, "\r\033[K%s", summary)
}

func (s *terminalSink) LogStatus(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		fmt.Fprint(s.w, "\r\033[K")
	}
	s.stamp.Fprint(s.w, time.Now().Format("15:04:05"))
	fmt.Fprintf(s.w, " %s\n", summary)
}
