// Package retry wraps outbound network calls with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how often and how patiently an external call is retried.
// The zero value is not usable; start from DefaultPolicy.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64

	// Sleep replaces the real wait between attempts. Tests inject a recorder
	// here so they run without real delays.
	Sleep func(time.Duration)
}

// DefaultPolicy matches the configured defaults: three attempts, one second
// initial backoff, doubling after each failure.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		Multiplier:     2.0,
	}
}

// Do invokes op up to p.MaxAttempts times, sleeping between failed attempts
// with exponential backoff. Transport faults and non-success remote statuses
// are the same thing here: op returns an error for both. After the last
// attempt the zero value and the last observed error are returned; callers
// supply their own fallback behavior instead of propagating the failure.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.InitialBackoff
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if err := p.wait(ctx, backoff); err != nil {
			return zero, err
		}
		backoff = time.Duration(float64(backoff) * multiplier)
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// wait blocks only the current request's goroutine for the backoff duration.
func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		p.Sleep(d)
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
