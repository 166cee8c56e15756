package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// Stable error codes for collaborator-permanent failures.
const (
	CodeNotFound         = "not_found"
	CodePermissionDenied = "permission_denied"
)

// RateLimitError is a collaborator-transient failure carrying the provider's
// retry-after hint. It satisfies the retry package's AfterHinter interface.
type RateLimitError struct {
	After time.Duration
	Err   error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.After, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RetryAfter returns how long the provider asked us to wait.
func (e *RateLimitError) RetryAfter() time.Duration { return e.After }

// APIError is a collaborator-permanent failure with a stable code.
type APIError struct {
	Code string
	Err  error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a permanent API failure that should not
// be retried.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// classifyError maps a go-github error into the transient/permanent taxonomy.
// Unrecognized errors pass through unchanged and are treated as transient by
// callers.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{
			After: untilReset(rateErr.Rate.Reset.Time),
			Err:   err,
		}
	}

	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		after := 60 * time.Second
		if abuseErr.RetryAfter != nil {
			after = *abuseErr.RetryAfter
		}
		return &RateLimitError{After: after, Err: err}
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return &APIError{Code: CodeNotFound, Err: err}
		case http.StatusForbidden:
			// A 403 with rate limit headers exhausted is transient; a plain
			// 403 is a permissions problem.
			if info := ParseRateLimit(respErr.Response); info != nil && info.Remaining == 0 {
				return &RateLimitError{After: info.WaitDuration(), Err: err}
			}
			return &APIError{Code: CodePermissionDenied, Err: err}
		case http.StatusUnauthorized:
			return &APIError{Code: CodePermissionDenied, Err: err}
		case http.StatusTooManyRequests:
			return &RateLimitError{After: retryAfterHint(respErr.Response), Err: err}
		}
	}

	return err
}

func untilReset(reset time.Time) time.Duration {
	d := time.Until(reset)
	if d < 0 {
		return 0
	}
	return d
}
