// Package future provides a small generic asynchronous result type.
//
// A Future is completed exactly once, either with a value or with an
// error. Callers compose on it with Then or wait with Await; a caller
// that no longer needs the result simply drops the handle.
package future

import (
	"context"
	"sync"
)

type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Go runs fn on a new goroutine and returns a Future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		value, err := fn()
		f.complete(value, err)
	}()
	return f
}

// Resolved returns an already successful Future.
func Resolved[T any](value T) *Future[T] {
	f := newFuture[T]()
	f.complete(value, nil)
	return f
}

// Failed returns an already failed Future.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future completes or ctx is done. Cancelling ctx
// only stops the wait; the underlying operation is not retracted.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the Future completes.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Then maps a successful result through fn. Failures pass through
// unchanged and fn is not called.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := newFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			var zero U
			next.complete(zero, f.err)
			return
		}
		next.complete(fn(f.value))
	}()
	return next
}

// Discard drops the value of f, keeping only its success or failure.
func Discard[T any](f *Future[T]) *Future[struct{}] {
	return Then(f, func(T) (struct{}, error) { return struct{}{}, nil })
}
