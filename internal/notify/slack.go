package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/rmercer/issuepilot/internal/store"
)

// SlackNotifier posts triage summaries to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlackNotifier creates a SlackNotifier for the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		post:       slack.PostWebhookContext,
	}
}

// Notify posts a single triage outcome.
func (s *SlackNotifier) Notify(ctx context.Context, summary Summary) error {
	link := fmt.Sprintf("<https://github.com/%s/issues/%d|%s#%d>",
		summary.Repo, summary.IssueNumber, summary.Repo, summary.IssueNumber)

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* %s", summary.Action, link)
	if summary.DuplicateCount > 0 {
		fmt.Fprintf(&b, " — %d duplicate candidate(s)", summary.DuplicateCount)
	}
	if summary.FindingCount > 0 {
		fmt.Fprintf(&b, " — %d finding(s) surfaced", summary.FindingCount)
	}
	if summary.ThresholdSource != "" {
		fmt.Fprintf(&b, " _(threshold: %s)_", summary.ThresholdSource)
	}

	msg := &slack.WebhookMessage{Text: b.String()}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("posting slack notification: %w", err)
	}
	return nil
}

// Digest posts aggregate per-repo statistics.
func (s *SlackNotifier) Digest(ctx context.Context, stats []store.RepoStats) error {
	if len(stats) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("*Triage digest*\n")
	for _, st := range stats {
		fmt.Fprintf(&b, "• %s — %d claims, %d flagged duplicate, %d embedded",
			st.Repo, st.ClaimCount, st.DuplicateCount, st.EmbeddingCount)
		if st.FeedbackSamples > 0 {
			fmt.Fprintf(&b, ", learned threshold %.2f (%d samples)",
				st.PosteriorMean, st.FeedbackSamples)
		}
		b.WriteString("\n")
	}

	msg := &slack.WebhookMessage{Text: b.String()}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("posting slack digest: %w", err)
	}
	return nil
}

// Compile-time check.
var _ Notifier = (*SlackNotifier)(nil)
