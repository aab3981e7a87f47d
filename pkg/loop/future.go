// SPDX-License-Identifier: MPL-2.0

package loop

import (
	"context"
	"sync"
)

type (
	// Future is a value that becomes available later.
	Future[T any] struct {
		mu      sync.Mutex
		done    chan struct{}
		value   T
		err     error
		settled bool
		then    []func(T, error)
	}

	// Resolve settles a Future with a value.
	Resolve[T any] func(T)

	// Reject settles a Future with an error.
	Reject func(error)
)

// NewFuture returns an unsettled Future and the functions that settle it.
// Only the first settlement has an effect.
func NewFuture[T any]() (*Future[T], Resolve[T], Reject) {
	f := &Future[T]{done: make(chan struct{})}
	resolve := func(v T) { f.settle(v, nil) }
	reject := func(err error) {
		var zero T
		f.settle(zero, err)
	}
	return f, resolve, reject
}

func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.value, f.err, f.settled = v, err, true
	callbacks := f.then
	f.then = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
}

// Done is closed once the Future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the Future has a value or an error.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled value and error. Before settlement it returns
// the zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Then registers cb to run on settlement. If the Future is already settled
// cb runs immediately.
func (f *Future[T]) Then(cb func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.then = append(f.then, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	cb(v, err)
}

// Wait blocks until the Future settles or ctx is done. Futures settled by
// loop tasks only settle while the loop is being run.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
