// ABOUTME: Fixed-size background worker pool
// ABOUTME: Runs deferred work items with cooperative abort and blocking wait
package task

import (
	"sync"
	"sync/atomic"
)

// Task is one unit of deferred work. It runs at most once; aborting it
// before it starts makes it a no-op, aborting it once running or done
// has no effect on side effects that already happened.
type Task struct {
	fn      func()
	aborted atomic.Bool
	done    chan struct{}
}

// Abort requests cooperative cancellation. A task that has not started
// yet will skip its body entirely.
func (t *Task) Abort() {
	t.aborted.Store(true)
}

// Wait blocks until the task has finished (or was skipped after abort).
func (t *Task) Wait() {
	<-t.done
}

// Done reports whether the task has finished without blocking.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task) run() {
	defer close(t.done)
	if t.aborted.Load() {
		return
	}
	t.fn()
}

// Queue executes submitted tasks on a fixed number of worker goroutines.
// With one worker all background work is serialized, which keeps it off
// the frame thread without introducing ordering hazards.
type Queue struct {
	tasks  chan *Task
	wg     sync.WaitGroup
	closed sync.Once
}

// NewQueue starts a queue with the given number of workers (minimum 1).
func NewQueue(workers int) *Queue {
	if workers < 1 {
		workers = 1
	}

	q := &Queue{
		tasks: make(chan *Task, 64),
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		t.run()
	}
}

// Submit enqueues fn and returns its task handle.
func (q *Queue) Submit(fn func()) *Task {
	t := &Task{
		fn:   fn,
		done: make(chan struct{}),
	}
	q.tasks <- t
	return t
}

// Close stops accepting work and waits for the workers to drain.
func (q *Queue) Close() {
	q.closed.Do(func() {
		close(q.tasks)
	})
	q.wg.Wait()
}
