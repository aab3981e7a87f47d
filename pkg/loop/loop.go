// SPDX-License-Identifier: MPL-2.0

package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type (
	// Task is a unit of deferred work.
	Task func()

	// Loop is a cooperative task queue.
	Loop struct {
		mu      sync.Mutex
		tasks   []Task
		turns   int
		running bool
		logger  *slog.Logger
	}

	// Option configures a Loop.
	Option func(*Loop)

	// PanicError wraps a value recovered from a panicking task.
	PanicError struct {
		Value any
	}
)

// Error implements the error interface.
func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return fmt.Sprintf("panic: %v", err)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty loop.
func New(opts ...Option) *Loop {
	l := &Loop{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit queues task for the next turn. It is safe to call from any
// goroutine and from inside a running task.
func (l *Loop) Submit(task Task) {
	if task == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append(l.tasks, task)
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Turns returns the number of turns run so far.
func (l *Loop) Turns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.turns
}

// RunOnce runs the tasks queued before the call and returns how many ran.
// Tasks they submit wait for the next turn.
func (l *Loop) RunOnce() int {
	l.mu.Lock()
	if l.running || len(l.tasks) == 0 {
		l.mu.Unlock()
		return 0
	}
	batch := l.tasks
	l.tasks = nil
	l.running = true
	l.turns++
	turn := l.turns
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.logger.Debug("loop turn", "turn", turn, "tasks", len(batch))
	for _, task := range batch {
		l.safeRun(task)
	}
	return len(batch)
}

// Run runs turns until the queue is empty or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.RunOnce() == 0 {
			return nil
		}
	}
}

// Go runs fn on the next turn and returns a Future settled with its result.
// A panic in fn rejects the future with *PanicError.
func Go[T any](l *Loop, fn func() (T, error)) *Future[T] {
	f, resolve, reject := NewFuture[T]()
	l.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				reject(&PanicError{Value: r})
			}
		}()
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	})
	return f
}

func (l *Loop) safeRun(task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", "panic", r)
		}
	}()
	task()
}
