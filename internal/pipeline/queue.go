package pipeline

import (
	"context"
	"sync"
)

// Element is a queue entry: either a data value or a termination marker
// meaning "no more data will follow from this producer".
type Element[T any] struct {
	Value T
	Done  bool
}

// Data wraps v in a data element.
func Data[T any](v T) Element[T] {
	return Element[T]{Value: v}
}

// Done returns a termination marker.
func Done[T any]() Element[T] {
	return Element[T]{Done: true}
}

// Queue is an unbounded FIFO queue safe for multiple producers and
// consumers. Push never blocks; Pop blocks until an element is available or
// the context is done.
type Queue[T any] struct {
	mu    sync.Mutex
	items []Element[T]

	// ready holds at most one pending wake-up. A consumer that takes an
	// element and leaves more behind passes the wake-up on.
	ready chan struct{}

	pushed  int
	markers int
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]Element[T], 0),
		ready: make(chan struct{}, 1),
	}
}

// Push appends e to the queue.
func (q *Queue[T]) Push(e Element[T]) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.pushed++
	if e.Done {
		q.markers++
	}
	q.mu.Unlock()

	q.signal()
}

// Pop removes and returns the oldest element, waiting for one if the queue
// is empty. It returns ctx.Err() once ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (Element[T], error) {
	for {
		if err := ctx.Err(); err != nil {
			return Element[T]{}, err
		}
		if e, ok := q.TryPop(); ok {
			return e, nil
		}

		select {
		case <-ctx.Done():
			return Element[T]{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryPop removes and returns the oldest element without waiting.
// The boolean is false when the queue is empty.
func (q *Queue[T]) TryPop() (Element[T], bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return Element[T]{}, false
	}
	e := q.items[0]
	var zero Element[T]
	q.items[0] = zero
	q.items = q.items[1:]
	more := len(q.items) > 0
	q.mu.Unlock()

	if more {
		q.signal()
	}
	return e, true
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pushed returns the number of elements ever pushed, markers included.
func (q *Queue[T]) Pushed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}

// Markers returns the number of termination markers ever pushed.
func (q *Queue[T]) Markers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.markers
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
