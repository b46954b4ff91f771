// Package concurrency implements the two building blocks §4.G and §5
// describe for overlapping I/O fan-out with strictly sequential
// computation: a bounded-parallel map that preserves input order, and a
// one-slot asynchronous lookahead iterator.
package concurrency

import (
	"context"
	"sync"

	"github.com/alitto/pond"
)

// TaskFactory produces one element of a BoundedParallelMap's output.
type TaskFactory[T any] func(ctx context.Context) (T, error)

// BoundedParallelMap schedules at most degreeOfParallelism factories in
// flight at once, and returns their results in an array whose indices
// match the input factories regardless of completion order.
//
// Once ctx is canceled, no further factories are started; already-running
// ones are awaited before returning. If any factory failed, that error is
// returned in preference to a bare context-cancellation error, matching
// §5's "surface aggregated failures in preference to cancellation".
func BoundedParallelMap[T any](ctx context.Context, degreeOfParallelism int, factories []TaskFactory[T]) ([]T, error) {
	if degreeOfParallelism < 1 {
		degreeOfParallelism = 1
	}
	results := make([]T, len(factories))
	pool := pond.New(degreeOfParallelism, len(factories))

	var mu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for i, factory := range factories {
		if ctx.Err() != nil {
			break
		}
		i, factory := i, factory
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			v, err := factory(ctx)
			if err != nil {
				recordErr(err)
				return
			}
			results[i] = v
		})
	}
	pool.StopAndWait()

	if firstErr != nil {
		return nil, firstErr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return results, nil
}
