package httpclient

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// sleepFunc blocks for the given duration, or until the context is done
type sleepFunc func(ctx context.Context, d time.Duration) error

// RateLimiter spaces out the requests of a single client instance.
// Consecutive Wait calls are separated by a random gap in [min, max]
type RateLimiter struct {
	last time.Time

	now    func() time.Time
	sleep  sleepFunc
	int64n func(n int64) int64

	min time.Duration
	max time.Duration

	mu sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the given delay bounds
func NewRateLimiter(minDelay, maxDelay time.Duration) *RateLimiter {
	if minDelay < 0 {
		minDelay = 0
	}

	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &RateLimiter{
		min:    minDelay,
		max:    maxDelay,
		now:    time.Now,
		sleep:  sleepContext,
		int64n: rand.Int64N,
	}
}

// Wait blocks until the next request is allowed to go out [BLOCKING].
// The first call on a fresh limiter returns immediately
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.last.IsZero() {
		var (
			elapsed = r.now().Sub(r.last)
			gap     = r.sample()
			delay   = gap
		)

		// Under the floor, the gap is measured from the previous request.
		// Past it, the whole gap is still applied so requests never
		// line up on a fixed period
		if elapsed < r.min {
			delay = gap - elapsed
		}

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.last = r.now()

	return nil
}

// Last returns the time the previous Wait call returned
func (r *RateLimiter) Last() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last
}

// sample draws a delay uniformly from [min, max]
func (r *RateLimiter) sample() time.Duration {
	spread := int64(r.max - r.min)
	if spread <= 0 {
		return r.min
	}

	return r.min + time.Duration(r.int64n(spread+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
