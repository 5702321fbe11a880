package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of work executed on the loop goroutine.
type Task func()

// Loop is a single-writer FIFO task loop.
//
// Post is safe from any goroutine; tasks run one at a time on the goroutine
// calling Run (or Drain). This keeps store mutations on one goroutine even
// when completions arrive from transport goroutines.
//
// The queue is unbounded so that a task may post follow-up tasks without
// blocking.
type Loop struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{
		tasks:  make([]Task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Post appends a task. Returns false if the loop has been stopped.
func (l *Loop) Post(t Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	l.tasks = append(l.tasks, t)

	// Non-blocking; the size-1 buffer coalesces signals
	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// next pops the front task without blocking.
func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}

	t := l.tasks[0]
	l.tasks[0] = nil // release the closure for GC
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return t, true
}

// Run executes tasks until ctx is cancelled or Stop is called and the queue
// is empty. Must be called from exactly one goroutine.
func (l *Loop) Run(ctx context.Context) error {
	slog.Debug("dispatch loop starting")

	for {
		if t, ok := l.next(); ok {
			runTask(t)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("dispatch loop stopping: context cancelled")
			l.Stop()
			return ctx.Err()

		case <-l.signal:
			// The signal channel is closed by Stop
			if l.isClosed() && l.Len() == 0 {
				slog.Debug("dispatch loop stopping: closed")
				return nil
			}
		}
	}
}

// Drain runs queued tasks on the calling goroutine until the queue is empty,
// including tasks posted by the tasks themselves. Returns the number run.
func (l *Loop) Drain() int {
	n := 0
	for {
		t, ok := l.next()
		if !ok {
			return n
		}
		runTask(t)
		n++
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Stop rejects further posts and wakes Run.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func runTask(t Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch loop task panicked", "panic", r)
		}
	}()
	t()
}
