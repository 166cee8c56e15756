package github

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

func respWithStatus(code int) *http.Response {
	return &http.Response{StatusCode: code, Header: http.Header{}}
}

func TestClassifyErrorRateLimit(t *testing.T) {
	reset := time.Now().Add(3 * time.Minute)
	err := classifyError(&gogithub.RateLimitError{
		Rate: gogithub.Rate{Reset: gogithub.Timestamp{Time: reset}},
	})

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("classified as %T, want *RateLimitError", err)
	}
	if rateErr.RetryAfter() <= 2*time.Minute || rateErr.RetryAfter() > 3*time.Minute {
		t.Errorf("RetryAfter = %v, want ~3m", rateErr.RetryAfter())
	}
	if IsPermanent(err) {
		t.Error("rate limit classified as permanent")
	}
}

func TestClassifyErrorAbuseRateLimit(t *testing.T) {
	after := 30 * time.Second
	err := classifyError(&gogithub.AbuseRateLimitError{RetryAfter: &after})

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("classified as %T, want *RateLimitError", err)
	}
	if rateErr.RetryAfter() != after {
		t.Errorf("RetryAfter = %v, want %v", rateErr.RetryAfter(), after)
	}
}

func TestClassifyErrorStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  string
		permanent bool
	}{
		{http.StatusNotFound, CodeNotFound, true},
		{http.StatusGone, CodeNotFound, true},
		{http.StatusForbidden, CodePermissionDenied, true},
		{http.StatusUnauthorized, CodePermissionDenied, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := classifyError(&gogithub.ErrorResponse{Response: respWithStatus(tt.status)})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("classified as %T, want *APIError", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if IsPermanent(err) != tt.permanent {
				t.Errorf("IsPermanent = %v, want %v", IsPermanent(err), tt.permanent)
			}
		})
	}
}

func TestClassifyErrorForbiddenWithExhaustedRateLimit(t *testing.T) {
	resp := respWithStatus(http.StatusForbidden)
	resp.Header.Set("X-RateLimit-Remaining", "0")
	resp.Header.Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Minute).Unix()))

	err := classifyError(&gogithub.ErrorResponse{Response: resp})

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("exhausted 403 classified as %T, want *RateLimitError", err)
	}
}

func TestClassifyErrorTooManyRequests(t *testing.T) {
	resp := respWithStatus(http.StatusTooManyRequests)
	resp.Header.Set("Retry-After", "45")

	err := classifyError(&gogithub.ErrorResponse{Response: resp})

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("classified as %T, want *RateLimitError", err)
	}
	if rateErr.RetryAfter() != 45*time.Second {
		t.Errorf("RetryAfter = %v, want 45s", rateErr.RetryAfter())
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	plain := errors.New("connection reset")
	if got := classifyError(plain); got != plain {
		t.Errorf("classifyError(%v) = %v, want unchanged", plain, got)
	}
	if classifyError(nil) != nil {
		t.Error("classifyError(nil) != nil")
	}
	if IsPermanent(plain) {
		t.Error("plain error classified as permanent")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("underlying")

	rateErr := &RateLimitError{After: time.Second, Err: base}
	if !errors.Is(rateErr, base) {
		t.Error("RateLimitError does not unwrap to base")
	}

	apiErr := &APIError{Code: CodeNotFound, Err: base}
	if !errors.Is(apiErr, base) {
		t.Error("APIError does not unwrap to base")
	}
}
