package pipeline

import (
	"context"
	"time"
)

// report pushes counter snapshots to the sink until ctx is cancelled.
// It owns nothing that needs flushing, so it can be stopped at any time.
func (r *run) report(ctx context.Context) {
	statusTicker := time.NewTicker(r.p.statusInterval)
	defer statusTicker.Stop()
	logTicker := time.NewTicker(r.p.logInterval)
	defer logTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-statusTicker.C:
			r.p.sink.SetStatus(r.counters.Snapshot().String())
		case <-logTicker.C:
			r.p.sink.LogStatus(r.counters.Snapshot().String())
		}
	}
}
