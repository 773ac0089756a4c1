package retry

import (
	"context"
	"time"
)

// Policy describes how failed attempts are retried: how many times,
// and with what exponential backoff between attempts.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int

	// BaseDelay is the wait before the first retry; it doubles per attempt.
	// Zero means 1 second.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration

	// RetryIf reports whether the error is worth another attempt.
	// Nil retries every error.
	RetryIf func(error) bool
}

// Delay returns the backoff before retrying after the given 0-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = time.Second
	}
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// sleep is an indirection so tests can run without real waiting.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn, retrying per the policy. The last error is returned when the
// attempts are exhausted, the error is classified as not retryable, or the
// context is cancelled during a backoff wait.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries {
			return err
		}
		if p.RetryIf != nil && !p.RetryIf(err) {
			return err
		}
		if waitErr := sleep(ctx, p.Delay(attempt)); waitErr != nil {
			return err
		}
	}
}
