package concurrency

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sliceSource(values []int, failAt int) NextFunc[int] {
	i := 0
	return func(ctx context.Context) (int, bool, error) {
		if failAt >= 0 && i == failAt {
			i++
			return 0, false, fmt.Errorf("boom at %d", failAt)
		}
		if i >= len(values) {
			return 0, false, nil
		}
		v := values[i]
		i++
		return v, true, nil
	}
}

func TestLookaheadYieldsInOrder(t *testing.T) {
	l := NewLookahead(context.Background(), sliceSource([]int{1, 2, 3}, -1))
	var got []int
	for {
		ok, err := l.Next()
		assert.NoError(t, err)
		if !ok {
			break
		}
		v, has := l.Current()
		assert.True(t, has)
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	_, has := l.Current()
	assert.False(t, has)
}

func TestLookaheadEmptyCurrentBeforeFirstNext(t *testing.T) {
	l := NewLookahead(context.Background(), sliceSource([]int{1}, -1))
	_, has := l.Current()
	assert.False(t, has)
}

func TestLookaheadFaultThenEndOfSequence(t *testing.T) {
	l := NewLookahead(context.Background(), sliceSource([]int{1, 2}, 0))
	ok, err := l.Next()
	assert.Error(t, err)
	assert.False(t, ok)
	_, has := l.Current()
	assert.False(t, has)

	// Subsequent calls report end-of-sequence without re-raising the fault
	// or an overlap error.
	ok, err = l.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestLookaheadOverlappedCall(t *testing.T) {
	// The constructor's prefetch and the prefetch that follows a successful
	// Next both call the NextFunc, so "started" is closed only once.
	var startOnce sync.Once
	started := make(chan struct{})
	block := make(chan struct{})
	l := NewLookahead(context.Background(), func(ctx context.Context) (int, bool, error) {
		startOnce.Do(func() { close(started) })
		<-block
		return 1, true, nil
	})

	done := make(chan struct{})
	go func() {
		l.Next()
		close(done)
	}()
	<-started
	// Wait until the goroutine's Next is in flight before overlapping it.
	for atomic.LoadInt32(&l.inCall) == 0 {
		runtime.Gosched()
	}

	_, err := l.Next()
	assert.ErrorIs(t, err, ErrOverlappedCall)

	close(block)
	<-done
}
