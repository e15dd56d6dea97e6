package model

import (
	"fmt"
	"time"
)

// Summary is a point-in-time snapshot of the pipeline counters.
//
// Invariants at every snapshot: Scanned <= Exported <= Total,
// Matched <= Scanned and Annotated <= Matched.
type Summary struct {
	Total     int `json:"total"`
	Exported  int `json:"exported"`
	Scanned   int `json:"scanned"`
	Matched   int `json:"matched"`
	Errored   int `json:"errored"`
	Annotated int `json:"annotated"`

	// Aborted is set when the run was cancelled before completion.
	Aborted bool `json:"aborted"`
}

// String renders the status line pushed to the progress sink.
func (s Summary) String() string {
	return fmt.Sprintf("Exported: %d/%d, Scanned: %d, Matched: %d, Annotated: %d, Errors: %d",
		s.Exported, s.Total, s.Scanned, s.Matched, s.Annotated, s.Errored)
}

// RunRecord describes a finished pipeline run.
type RunRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Concurrency int       `json:"concurrency"`
	Rules       []string  `json:"rules"`
	Summary     Summary   `json:"summary"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// MatchedItem pairs an item with the rule names recorded for it.
type MatchedItem struct {
	Item  Item
	Rules []string
}
