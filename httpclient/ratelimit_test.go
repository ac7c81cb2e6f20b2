package httpclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manual clock, advanced only by sleeping
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.slept = append(f.slept, d)

	if d > 0 {
		f.now = f.now.Add(d)
	}

	return nil
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFakeLimiter(minDelay, maxDelay time.Duration) (*RateLimiter, *fakeClock) {
	clock := newFakeClock()

	l := NewRateLimiter(minDelay, maxDelay)
	l.now = clock.Now
	l.sleep = clock.Sleep

	return l, clock
}

func TestRateLimiter_New(t *testing.T) {
	t.Parallel()

	t.Run("inverted bounds", func(t *testing.T) {
		t.Parallel()

		l := NewRateLimiter(3*time.Second, time.Second)

		assert.Equal(t, 3*time.Second, l.min)
		assert.Equal(t, 3*time.Second, l.max)
	})

	t.Run("negative minimum", func(t *testing.T) {
		t.Parallel()

		l := NewRateLimiter(-time.Second, time.Second)

		assert.Equal(t, time.Duration(0), l.min)
		assert.Equal(t, time.Second, l.max)
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("first call is immediate", func(t *testing.T) {
		t.Parallel()

		l, clock := newFakeLimiter(time.Second, 3*time.Second)

		require.NoError(t, l.Wait(context.Background()))

		assert.Empty(t, clock.slept)
		assert.Equal(t, clock.Now(), l.Last())
	})

	t.Run("back-to-back calls respect the floor", func(t *testing.T) {
		t.Parallel()

		l, _ := newFakeLimiter(time.Second, 3*time.Second)

		require.NoError(t, l.Wait(context.Background()))
		first := l.Last()

		require.NoError(t, l.Wait(context.Background()))
		second := l.Last()

		assert.GreaterOrEqual(t, second.Sub(first), time.Second)
		assert.LessOrEqual(t, second.Sub(first), 3*time.Second)
	})

	t.Run("gaps are spread over the delay range", func(t *testing.T) {
		t.Parallel()

		var (
			minDelay = time.Second
			maxDelay = 3 * time.Second

			l, _ = newFakeLimiter(minDelay, maxDelay)

			gaps   = make([]time.Duration, 0, 1000)
			lowest = maxDelay
			widest = minDelay
		)

		require.NoError(t, l.Wait(context.Background()))

		prev := l.Last()

		for range 1000 {
			require.NoError(t, l.Wait(context.Background()))

			gap := l.Last().Sub(prev)
			prev = l.Last()

			gaps = append(gaps, gap)

			lowest = min(lowest, gap)
			widest = max(widest, gap)
		}

		for _, gap := range gaps {
			assert.GreaterOrEqual(t, gap, minDelay)
			assert.LessOrEqual(t, gap, maxDelay)
		}

		// A uniform sample of 1000 should cover most of the range
		assert.Less(t, lowest, minDelay+200*time.Millisecond)
		assert.Greater(t, widest, maxDelay-200*time.Millisecond)
	})

	t.Run("partial elapsed time counts towards the gap", func(t *testing.T) {
		t.Parallel()

		l, clock := newFakeLimiter(2*time.Second, 2*time.Second)

		require.NoError(t, l.Wait(context.Background()))

		clock.Advance(500 * time.Millisecond)

		require.NoError(t, l.Wait(context.Background()))

		require.Len(t, clock.slept, 1)
		assert.Equal(t, 1500*time.Millisecond, clock.slept[0])
	})

	t.Run("delay still applied past the floor", func(t *testing.T) {
		t.Parallel()

		l, clock := newFakeLimiter(time.Second, time.Second)

		require.NoError(t, l.Wait(context.Background()))

		clock.Advance(time.Minute)

		require.NoError(t, l.Wait(context.Background()))

		require.Len(t, clock.slept, 1)
		assert.Equal(t, time.Second, clock.slept[0])
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		l := NewRateLimiter(time.Hour, time.Hour)

		require.NoError(t, l.Wait(context.Background()))

		ctx, cancelFn := context.WithCancel(context.Background())
		cancelFn()

		assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
	})
}
