package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts is the default number of attempts before giving up.
	DefaultMaxAttempts = 3

	// baseDelay is the initial backoff delay.
	baseDelay = 1 * time.Second

	// maxDelay caps the backoff delay, including provider-supplied hints.
	maxDelay = 60 * time.Second

	// jitterFraction is the maximum fraction of the delay added as jitter.
	jitterFraction = 0.25
)

// AfterHinter is implemented by errors that carry a provider-supplied
// retry-after hint (rate-limit responses). When present, the hint replaces
// the computed backoff for that attempt.
type AfterHinter interface {
	RetryAfter() time.Duration
}

// permanentError marks an error as not worth retrying.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Do stops immediately instead of retrying.
// Use it for not-found / permission-denied style failures.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do retries fn up to maxAttempts times with exponential backoff and jitter.
// It respects context cancellation, honors retry-after hints on errors that
// carry one, and stops immediately on errors wrapped with Permanent. The
// last error is returned if all attempts fail.
func Do(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var p *permanentError
		if errors.As(lastErr, &p) {
			return p.err
		}

		// Don't sleep after the last attempt.
		if attempt < maxAttempts-1 {
			delay := backoff(attempt)
			var hinter AfterHinter
			if errors.As(lastErr, &hinter) {
				if hint := hinter.RetryAfter(); hint > 0 {
					delay = hint
					if delay > maxDelay {
						delay = maxDelay
					}
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}

// backoff calculates the delay for the given attempt (0-indexed) with jitter.
// Progression: 1s, 2s, 4s, ... capped at maxDelay.
func backoff(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * baseDelay
	if delay > maxDelay {
		delay = maxDelay
	}

	// Add jitter: up to jitterFraction of the delay.
	jitter := time.Duration(float64(delay) * jitterFraction * rand.Float64())
	return delay + jitter
}
