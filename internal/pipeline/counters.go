package pipeline

import (
	"sync"

	"github.com/nao1215/sigscan/internal/model"
)

// Counters is the aggregate state shared by all workers of a run.
// The lock is held only for an increment or a snapshot.
type Counters struct {
	mu sync.Mutex
	s  model.Summary
}

// NewCounters creates counters for a run over total items.
func NewCounters(total int) *Counters {
	return &Counters{s: model.Summary{Total: total}}
}

// Snapshot returns a consistent copy of all counters.
func (c *Counters) Snapshot() model.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

func (c *Counters) addExported() {
	c.mu.Lock()
	c.s.Exported++
	c.mu.Unlock()
}

// addScanResult counts one scanned artifact together with its match and
// error, so no snapshot sees Matched ahead of Scanned.
func (c *Counters) addScanResult(matched, errored bool) {
	c.mu.Lock()
	c.s.Scanned++
	if matched {
		c.s.Matched++
	}
	if errored {
		c.s.Errored++
	}
	c.mu.Unlock()
}

func (c *Counters) addErrored() {
	c.mu.Lock()
	c.s.Errored++
	c.mu.Unlock()
}

func (c *Counters) addAnnotated() {
	c.mu.Lock()
	c.s.Annotated++
	c.mu.Unlock()
}

// markAborted records that a stage stopped because the run was cancelled.
func (c *Counters) markAborted() {
	c.mu.Lock()
	c.s.Aborted = true
	c.mu.Unlock()
}
