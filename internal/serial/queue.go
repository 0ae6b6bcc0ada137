// Package serial provides a depth-1 FIFO execution queue. Submitted tasks
// run one at a time, strictly in submission order, and each enqueue returns
// a Handle that settles with exactly that task's outcome. The queue is the
// serialization backbone that keeps overlapping lifecycle transitions from
// racing: a task never starts until the previous one has fully settled.
package serial

import (
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// Task is a unit of work executed by the queue. A task that panics settles
// its handle with the recovered panic as an error; it never takes down the
// queue or influences sibling tasks.
type Task func() error

// Handle represents the eventual settlement of an enqueued task.
type Handle struct {
	done chan struct{}
	err  error
}

// Done returns a channel that is closed once the task has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task settles and returns its outcome.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the task's outcome. It must only be called after Done is
// closed; before settlement it returns nil regardless of the eventual
// outcome.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Settled reports whether the task has settled.
func (h *Handle) Settled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Notify invokes fn with the task's outcome once it settles. The callback
// runs on its own goroutine, adapting the handle to (error) callback
// semantics for callers that prefer not to block.
func (h *Handle) Notify(fn func(error)) {
	go func() {
		<-h.done
		fn(h.err)
	}()
}

// Queue executes tasks one at a time in enqueue order. The backlog is
// unbounded; concurrency width is fixed at one. The zero value is not
// usable; create queues with NewQueue.
type Queue struct {
	mu   sync.Mutex
	tail <-chan struct{} // Done channel of the most recently enqueued task
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a task to the backlog and returns its settlement handle.
// The task starts only after every previously enqueued task has settled,
// whatever their outcomes.
func (q *Queue) Enqueue(task Task) *Handle {
	h := &Handle{done: make(chan struct{})}

	q.mu.Lock()
	prev := q.tail
	q.tail = h.done
	q.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		var err error
		if r := panics.Try(func() { err = task() }); r != nil {
			err = r.AsError()
		}
		h.err = err
		close(h.done)
	}()

	return h
}
