package triage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmercer/issuepilot/internal/github"
	"github.com/rmercer/issuepilot/internal/store"
)

// CommentLister provides the recent comments the marker layer scans.
type CommentLister interface {
	ListRecentComments(ctx context.Context, repo string, issueNumber int) ([]github.Comment, error)
}

// ClaimStore is the persistence surface the claim layer depends on.
type ClaimStore interface {
	Claim(ctx context.Context, repo string, issueNumber int, deliveryID string, cooldown time.Duration) (*store.ClaimResult, error)
	CompleteClaim(ctx context.Context, repo string, issueNumber, duplicateCount int, commentExternalID string) error
}

// Decision is the outcome of running the idempotency layers for one event.
type Decision struct {
	State  State
	Reason string
	Claim  *store.TriageClaim
}

// Coordinator decides whether an issue event should be acted on. It runs two
// layers in order: a best-effort scan of recent comments for a triage marker,
// then an atomic conditional claim against the store. The marker scan fails
// open; a claim failure aborts the task.
type Coordinator struct {
	comments CommentLister
	claims   ClaimStore
	cooldown time.Duration
	logger   *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCooldown overrides the reclaim cooldown window.
func WithCooldown(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// NewCoordinator builds a Coordinator. comments may be nil, in which case the
// marker layer is a no-op and only the claim layer guards duplicates.
func NewCoordinator(comments CommentLister, claims ClaimStore, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		comments: comments,
		claims:   claims,
		cooldown: time.Hour,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin runs the idempotency layers. A Skipped decision means another worker
// (or an earlier delivery) already handled the issue within the cooldown; a
// Claimed decision means the caller owns the triage action.
func (c *Coordinator) Begin(ctx context.Context, repo string, issueNumber int, deliveryID string) (*Decision, error) {
	if res := c.scanMarker(ctx, repo, issueNumber); res.outcome == Skip {
		return &Decision{State: StateSkipped, Reason: res.reason}, nil
	}

	row, res := c.acquireClaim(ctx, repo, issueNumber, deliveryID)
	switch res.outcome {
	case Abort:
		return nil, res.err
	case Skip:
		return &Decision{State: StateSkipped, Reason: res.reason, Claim: row}, nil
	}
	return &Decision{State: StateClaimed, Claim: row}, nil
}

// scanMarker looks for a previously posted triage marker in recent comments.
// Any error here is logged and treated as "no marker found" so a flaky API
// read cannot block triage; the claim layer still guards correctness.
func (c *Coordinator) scanMarker(ctx context.Context, repo string, issueNumber int) layerResult {
	if c.comments == nil {
		return proceed()
	}
	comments, err := c.comments.ListRecentComments(ctx, repo, issueNumber)
	if err != nil {
		c.logger.Warn("marker scan failed, proceeding to claim",
			"repo", repo, "issue", issueNumber, "error", err)
		return proceed()
	}
	marker := Marker(repo, issueNumber)
	for _, comment := range comments {
		if containsMarker(comment.Body, marker) {
			return skip("triage marker present in comment " + comment.ExternalID)
		}
	}
	return proceed()
}

// acquireClaim attempts the atomic conditional claim. Losing the claim is a
// Skip; a storage error is an Abort because we cannot tell whether anyone
// owns the issue.
func (c *Coordinator) acquireClaim(ctx context.Context, repo string, issueNumber int, deliveryID string) (*store.TriageClaim, layerResult) {
	result, err := c.claims.Claim(ctx, repo, issueNumber, deliveryID, c.cooldown)
	if err != nil {
		return nil, abort(fmt.Errorf("claim layer: %w", err))
	}
	if !result.Claimed {
		reason := "claim held"
		if result.Row != nil {
			reason = "claim held by delivery " + result.Row.DeliveryID
		}
		return result.Row, skip(reason)
	}
	return result.Row, proceed()
}

// Complete records bookkeeping for a finished triage action. Failures are
// logged, not returned: the action already happened and the claim row plus
// the posted marker keep reprocessing bounded.
func (c *Coordinator) Complete(ctx context.Context, repo string, issueNumber int, duplicateCount int, commentExternalID string) {
	if err := c.claims.CompleteClaim(ctx, repo, issueNumber, duplicateCount, commentExternalID); err != nil {
		c.logger.Warn("claim completion bookkeeping failed",
			"repo", repo, "issue", issueNumber, "error", err)
	}
}
