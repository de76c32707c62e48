// Package retry repeats checks against dependencies that may come up after the
// service does.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	defaultBase = 100 * time.Millisecond
	defaultCap  = 5 * time.Second
)

// A Backoff returns the wait before the attempt following attempt.
type Backoff func(attempt int) time.Duration

// Exponential doubles base on every attempt, adds up to half of it as
// jitter and never waits longer than limit.
func Exponential(base, limit time.Duration) Backoff {
	return func(attempt int) time.Duration {
		wait := base
		for i := 1; i < attempt && wait < limit; i++ {
			wait *= 2
		}
		wait = min(wait, limit)
		if half := int64(wait / 2); half > 0 {
			wait += time.Duration(rand.Int64N(half))
		}
		return min(wait, limit)
	}
}

func Constant(wait time.Duration) Backoff {
	return func(int) time.Duration {
		return wait
	}
}

type Policy struct {
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, wait time.Duration, err error)
}

func (p *Policy) normalize() {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = Exponential(defaultBase, defaultCap)
	}
	if p.Retryable == nil {
		p.Retryable = notCanceled
	}
	if p.OnRetry == nil {
		p.OnRetry = func(int, time.Duration, error) {}
	}
}

func notCanceled(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue calls fn until it succeeds, returns a non-retryable error or
// the attempts run out. The last error is returned.
func DoValue[T any](
	ctx context.Context, p Policy, fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	p.normalize()
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	var err error
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt == p.Attempts || !p.Retryable(err) {
			return zero, err
		}

		wait := p.Backoff(attempt)
		p.OnRetry(attempt, wait, err)

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
	}
}
