// Package notify delivers best-effort operator notifications about triage
// outcomes. Failures here never affect triage correctness.
package notify

import (
	"context"

	"github.com/rmercer/issuepilot/internal/store"
)

// Summary describes one completed triage action for operators.
type Summary struct {
	Repo            string
	IssueNumber     int
	Action          string
	DuplicateCount  int
	FindingCount    int
	ThresholdSource string
}

// Notifier delivers triage summaries and periodic digests.
type Notifier interface {
	// Notify reports a single triage outcome.
	Notify(ctx context.Context, summary Summary) error

	// Digest reports aggregate per-repo statistics.
	Digest(ctx context.Context, stats []store.RepoStats) error
}
