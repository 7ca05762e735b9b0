package lazy

import (
	"context"
	"github.com/ValentinKolb/dDoc/lib/dberr"
	"sync"
)

// Future is the handle of a lazily loaded value. It is resolved exactly once,
// by the flush that executed its operation.
type Future[T any] struct {
	scheduler *Scheduler
	done      chan struct{}

	mu        sync.Mutex
	value     T
	err       error
	observers []func(T, error)
}

func newFuture[T any](s *Scheduler) *Future[T] {
	return &Future[T]{
		scheduler: s,
		done:      make(chan struct{}),
	}
}

// Value returns the value, flushing the pending operations of the scheduler if the
// value was not created yet. A failed flush is returned as error of every future
// that was part of it.
func (f *Future[T]) Value(ctx context.Context) (T, error) {
	if !f.IsValueCreated() && f.scheduler != nil {
		// the flush error is also the error of this future
		_ = f.scheduler.Flush(ctx)
	}

	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, dberr.Wrap(dberr.CodeRequestAborted, ctx.Err(), "waiting for lazy value aborted")
	}
}

// IsValueCreated reports whether the future was resolved, without blocking
func (f *Future[T]) IsValueCreated() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// OnResolved registers fn to be called once with the outcome of the future.
// If the future is already resolved fn is called immediately.
func (f *Future[T]) OnResolved(fn func(value T, err error)) {
	f.mu.Lock()
	if !f.IsValueCreated() {
		f.observers = append(f.observers, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}

// resolve sets the outcome, calls after the first one are ignored. The returned
// function runs the observers and must be called without holding the flush lock.
func (f *Future[T]) resolve(value T, err error) (notify func()) {
	f.mu.Lock()
	if f.IsValueCreated() {
		f.mu.Unlock()
		return func() {}
	}
	f.value, f.err = value, err
	observers := f.observers
	f.observers = nil
	close(f.done)
	f.mu.Unlock()

	return func() {
		for _, fn := range observers {
			fn(value, err)
		}
	}
}
