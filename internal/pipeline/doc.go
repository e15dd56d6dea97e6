// Package pipeline runs the export → scan → annotate pipeline over a set of
// catalog items.
//
// A run is made of four kinds of workers connected by three unbounded FIFO
// queues:
//
//	work queue ──▶ export (1) ──▶ scan queue ──▶ scan pool (N) ──▶ annotate queue ──▶ annotate (1)
//
// plus a progress reporter that periodically pushes the shared counters to a
// Sink. The coordinator (Pipeline.Run) seeds the work queue, starts every
// worker, joins the three work stages and then stops the reporter.
//
// # Shutdown protocol
//
// Termination travels through the queues as ordinary elements, so it always
// respects FIFO order relative to real data:
//
//   - the export stage pushes exactly N termination markers to the scan queue
//     when it exits, whether it drained the work queue or was aborted;
//   - each of the N scan workers stops after consuming one marker (or on
//     abort) and pushes exactly one marker to the annotate queue;
//   - the annotate stage stops once it has seen N markers.
//
// Pushes never block, so the markers are always delivered and no stage can
// wait forever on an empty queue.
//
// # Cancellation
//
// Abort is the cancellation of the context passed to Run. The context is
// threaded into every blocking queue pop and every collaborator call.
package pipeline
