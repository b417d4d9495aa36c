package async

import (
	"context"
	"sync"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// Async executes fn(ctx, param) in its own goroutine and returns a Future for its result.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		// Early exit prevents goroutine leak when context is pre-canceled
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		res, err := fn(ctx, param)

		f.once.Do(func() {
			f.result = res
			f.err = err
		})
	}()

	return f
}

// Settled is the final state of one future.
type Settled[U any] struct {
	Value U
	Err   error
}

// Settle waits for every future and returns their states in the order the futures were given.
// Unlike a fail-fast join it never stops at the first error, so no computation is abandoned.
func Settle[U any](futures ...*Future[U]) []Settled[U] {
	out := make([]Settled[U], len(futures))
	for i, f := range futures {
		out[i].Value, out[i].Err = f.Await()
	}
	return out
}

// Limit wraps fn so that at most n invocations run at the same time.
// A non-positive n returns fn unchanged. Callers waiting for a slot give up
// with the context error when ctx is done first.
func Limit[T any, U any](n int, fn func(context.Context, T) (U, error)) func(context.Context, T) (U, error) {
	if n <= 0 {
		return fn
	}
	sem := make(chan struct{}, n)
	return func(ctx context.Context, param T) (U, error) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			var zero U
			return zero, ctx.Err()
		}
		defer func() { <-sem }()
		return fn(ctx, param)
	}
}
