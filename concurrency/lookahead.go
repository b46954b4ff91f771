package concurrency

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrOverlappedCall is returned by Lookahead.Next when a previous Next call
// on the same Lookahead is still in flight (§4.G, §9's async-lookahead
// control flow table).
var ErrOverlappedCall = errors.New("concurrency: overlapped Next call")

type fetchResult[T any] struct {
	value T
	ok    bool
	err   error
}

// NextFunc produces the next element of an asynchronous sequence. ok is
// false at end-of-sequence.
type NextFunc[T any] func(ctx context.Context) (value T, ok bool, err error)

// Lookahead wraps an asynchronous sequence so that, at any time after
// construction, the following element's fetch is already running: a
// one-slot channel fed by an eager background producer. The history
// source's changeset listing is read through one of these so that the
// network round-trip for changeset N+1 overlaps the caller's processing
// of changeset N (§9).
//
// Next is not reentrant: calling it while a previous call on the same
// Lookahead has not returned fails fast with ErrOverlappedCall instead of
// blocking on it.
type Lookahead[T any] struct {
	ctx     context.Context
	next    NextFunc[T]
	pending chan fetchResult[T]
	inCall  int32

	current    T
	hasCurrent bool
	done       bool
}

// NewLookahead constructs a Lookahead and immediately starts prefetching
// its first element.
func NewLookahead[T any](ctx context.Context, next NextFunc[T]) *Lookahead[T] {
	l := &Lookahead[T]{ctx: ctx, next: next}
	l.startFetch()
	return l
}

func (l *Lookahead[T]) startFetch() {
	ch := make(chan fetchResult[T], 1)
	l.pending = ch
	go func() {
		v, ok, err := l.next(l.ctx)
		ch <- fetchResult[T]{v, ok, err}
	}()
}

// Next blocks for the pre-fetched element, then immediately starts
// prefetching the one after it, and reports whether an element was
// available. Current is updated on success and cleared on end-of-sequence
// or failure; once either has occurred, subsequent Next calls return
// (false, nil) without re-raising the original error or touching the
// fetch state further.
func (l *Lookahead[T]) Next() (bool, error) {
	if !atomic.CompareAndSwapInt32(&l.inCall, 0, 1) {
		return false, ErrOverlappedCall
	}
	defer atomic.StoreInt32(&l.inCall, 0)

	if l.done {
		l.hasCurrent = false
		return false, nil
	}

	res := <-l.pending
	if res.err != nil {
		l.done = true
		l.hasCurrent = false
		return false, res.err
	}
	if !res.ok {
		l.done = true
		l.hasCurrent = false
		return false, nil
	}
	l.current = res.value
	l.hasCurrent = true
	l.startFetch()
	return true, nil
}

// Current returns the most recently fetched element and whether one is
// available.
func (l *Lookahead[T]) Current() (T, bool) {
	return l.current, l.hasCurrent
}
