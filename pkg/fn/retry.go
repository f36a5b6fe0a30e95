package fn

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryOpts configures Retry.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry suits transient infrastructure failures at startup.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// Retry runs f up to MaxAttempts times, doubling the wait between attempts.
// The last failure is returned when attempts are exhausted; a cancelled
// context aborts the wait.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	var res Result[T]
	wait := opts.InitialWait

	for attempt := 1; ; attempt++ {
		res = f(ctx)
		if res.IsOk() || attempt >= opts.MaxAttempts {
			return res
		}

		sleep := wait
		if opts.Jitter {
			sleep = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if sleep > opts.MaxWait {
			sleep = opts.MaxWait
		}

		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(sleep):
		}

		if wait *= 2; wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}
