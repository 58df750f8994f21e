// Package dispatch runs blocking backend work on a bounded worker pool and
// delivers results over typed reply channels. Serving goroutines never call
// the token store or the credential bridge directly; they submit work here
// and select on the reply, so a stalled backend cannot pile up unbounded
// goroutines.
package dispatch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// Reply carries one result or one error, never both.
type Reply[T any] struct {
	Value T
	Err   error
}

// Pool bounds the number of concurrently executing backend calls.
type Pool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewPool creates a pool running at most workers calls at once.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
	}
}

// Do submits fn and returns a buffered channel that will receive exactly one
// Reply. If the context is cancelled before a worker slot frees up, the
// reply carries the context error and fn never runs. fn itself must honor
// ctx so client disconnects propagate to the backend call.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) <-chan Reply[T] {
	out := make(chan Reply[T], 1)
	go func() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			out <- Reply[T]{Err: err}
			return
		}
		defer p.sem.Release(1)
		value, err := fn(ctx)
		out <- Reply[T]{Value: value, Err: err}
	}()
	return out
}

// Await blocks on a reply channel until the result arrives or ctx ends.
func Await[T any](ctx context.Context, ch <-chan Reply[T]) (T, error) {
	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
