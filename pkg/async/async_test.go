package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("returns the function result", func(t *testing.T) {
		t.Parallel()
		f := async.Async(context.Background(), 42, func(_ context.Context, n int) (string, error) {
			return fmt.Sprintf("Number: %d", n), nil
		})

		res, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, "Number: 42", res)
	})

	t.Run("propagates the function error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Async(context.Background(), 1, func(context.Context, int) (int, error) {
			return 0, boom
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("pre-cancelled context skips the function", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		f := async.Async(ctx, 1, func(context.Context, int) (int, error) {
			called.Store(true)
			return 1, nil
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})
}

func TestSettle(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fn := func(_ context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, boom
		}
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	}

	futures := make([]*async.Future[int], 5)
	for i := range futures {
		futures[i] = async.Async(context.Background(), i, fn)
	}

	settled := async.Settle(futures...)
	require.Len(t, settled, 5)
	for i, s := range settled {
		if i%2 == 0 {
			assert.ErrorIs(t, s.Err, boom, "slot %d", i)
			continue
		}
		assert.NoError(t, s.Err, "slot %d", i)
		assert.Equal(t, i*10, s.Value, "slot %d", i)
	}
}

func TestSettle_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, async.Settle[int]())
}

func TestLimit(t *testing.T) {
	t.Parallel()

	t.Run("caps concurrent executions", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		fn := async.Limit(2, func(context.Context, int) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return 0, nil
		})

		futures := make([]*async.Future[int], 8)
		for i := range futures {
			futures[i] = async.Async(context.Background(), i, fn)
		}
		async.Settle(futures...)

		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("non-positive limit leaves function unchanged", func(t *testing.T) {
		t.Parallel()
		fn := async.Limit(0, func(_ context.Context, n int) (int, error) { return n + 1, nil })
		v, err := fn(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("waiting caller honours context", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		fn := async.Limit(1, func(context.Context, int) (int, error) {
			close(started)
			<-release
			return 0, nil
		})

		first := async.Async(context.Background(), 0, fn)
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := fn(ctx, 1)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		_, err = first.Await()
		assert.NoError(t, err)
	})
}
