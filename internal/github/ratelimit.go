package github

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo holds parsed rate limit information from GitHub API response
// headers.
type RateLimitInfo struct {
	Remaining int
	Reset     time.Time
	Observed  time.Time
}

// ParseRateLimit extracts rate limit information from a GitHub API HTTP
// response. Returns nil if the relevant headers are not present.
func ParseRateLimit(resp *http.Response) *RateLimitInfo {
	if resp == nil {
		return nil
	}

	remainingStr := resp.Header.Get("X-RateLimit-Remaining")
	resetStr := resp.Header.Get("X-RateLimit-Reset")

	if remainingStr == "" && resetStr == "" {
		return nil
	}

	info := &RateLimitInfo{
		Observed: time.Now(),
	}

	if remainingStr != "" {
		remaining, err := strconv.Atoi(remainingStr)
		if err == nil {
			info.Remaining = remaining
		}
	}

	if resetStr != "" {
		resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
		if err == nil {
			info.Reset = time.Unix(resetUnix, 0)
		}
	}

	return info
}

// WaitDuration returns how long to wait before the rate limit resets.
// Returns zero if the reset time is in the past.
func (r *RateLimitInfo) WaitDuration() time.Duration {
	if r == nil {
		return 0
	}
	d := time.Until(r.Reset)
	if d < 0 {
		return 0
	}
	return d
}

// retryAfterHint derives a wait duration from a rate-limited response,
// preferring rate limit reset headers, then Retry-After, then a 60s default.
func retryAfterHint(resp *http.Response) time.Duration {
	if resp == nil {
		return 60 * time.Second
	}

	if info := ParseRateLimit(resp); info != nil && !info.Reset.IsZero() {
		if wait := info.WaitDuration(); wait > 0 {
			return wait
		}
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return 60 * time.Second
}
