package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxBackoff = 30 * time.Second

// RetryPolicy bounds how an operation is retried.
type RetryPolicy struct {
	// Attempts is the total number of tries. Values below 1 mean 1.
	Attempts int

	// Delay is the wait before the second attempt. It doubles after each
	// failure up to 30s.
	Delay time.Duration

	// Timeout bounds each attempt. Zero means no per-attempt bound.
	Timeout time.Duration
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.Delay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxBackoff,
	}
}

// RetryWithBackoff runs op until it succeeds, returns an error retryable
// rejects, or the attempts are used up. The last error is returned. It stops
// early with ctx's error when ctx is done.
func RetryWithBackoff(ctx context.Context, p RetryPolicy, retryable func(error) bool, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := runAttempt(ctx, p.Timeout, op)
		switch {
		case err == nil:
			return struct{}{}, nil
		case ctx.Err() != nil:
			return struct{}{}, backoff.Permanent(ctx.Err())
		case attempt >= attempts || !retryable(err):
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)

	var perr *backoff.PermanentError
	if errors.As(err, &perr) {
		return perr.Unwrap()
	}
	return err
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(ctx)
}
