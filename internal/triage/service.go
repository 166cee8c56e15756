package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rmercer/issuepilot/internal/config"
	"github.com/rmercer/issuepilot/internal/dedup"
	"github.com/rmercer/issuepilot/internal/github"
	"github.com/rmercer/issuepilot/internal/notify"
	"github.com/rmercer/issuepilot/internal/prioritize"
	"github.com/rmercer/issuepilot/internal/provider"
	"github.com/rmercer/issuepilot/internal/queue"
	"github.com/rmercer/issuepilot/internal/retry"
	"github.com/rmercer/issuepilot/internal/store"
	"github.com/rmercer/issuepilot/internal/threshold"
)

// Commenter is the write side of the GitHub surface the service touches.
type Commenter interface {
	PostComment(ctx context.Context, repo string, issueNumber int, body string) (string, error)
	ApplyLabel(ctx context.Context, repo string, issueNumber int, label string) error
}

// IssueStore is the persistence surface for issue rows and embeddings.
type IssueStore interface {
	UpsertIssue(ctx context.Context, issue *store.Issue) error
	UpdateEmbedding(ctx context.Context, repo string, number int, embedding []byte, model string) error
}

// Reviewer produces review findings for an issue.
type Reviewer interface {
	Review(ctx context.Context, repo string, issue github.Issue) ([]prioritize.Finding, error)
}

// Service runs the full triage pipeline for incoming issue events. Events
// are serialized per installation through the tenant queue; within a task
// the dedup and review paths fail open while the claim and the triage
// comment itself are load-bearing.
type Service struct {
	config    config.Accessor
	queue     *queue.TenantQueue
	coord     *Coordinator
	issues    IssueStore
	embedder  provider.Embedder
	embedName string
	detector  *dedup.Detector
	reviewer  Reviewer
	commenter Commenter
	notifier  notify.Notifier
	logger    *slog.Logger
}

// ServiceOption configures optional collaborators on a Service.
type ServiceOption func(*Service)

// WithEmbedder enables the duplicate-detection path.
func WithEmbedder(e provider.Embedder, model string) ServiceOption {
	return func(s *Service) {
		s.embedder = e
		s.embedName = model
	}
}

// WithReviewer enables the automated review path.
func WithReviewer(r Reviewer) ServiceOption {
	return func(s *Service) { s.reviewer = r }
}

// WithNotifier enables outcome notifications.
func WithNotifier(n notify.Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// NewService wires the triage pipeline. config, queue, coord, issues,
// detector, and commenter are required; the rest are optional paths.
func NewService(cfg config.Accessor, q *queue.TenantQueue, coord *Coordinator, issues IssueStore, detector *dedup.Detector, commenter Commenter, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		config:    cfg,
		queue:     q,
		coord:     coord,
		issues:    issues,
		detector:  detector,
		commenter: commenter,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleEvent enqueues the event on its installation's lane and waits for
// the triage task to finish. Events for the same installation run in FIFO
// order; different installations run concurrently.
func (s *Service) HandleEvent(ctx context.Context, evt github.IssueEvent) error {
	return s.queue.Enqueue(ctx, evt.InstallationID, func(ctx context.Context) error {
		return s.process(ctx, evt)
	})
}

func (s *Service) process(ctx context.Context, evt github.IssueEvent) error {
	if err := validateEvent(evt); err != nil {
		s.logger.Error("dropping malformed issue event",
			"repo", evt.Repo, "delivery", evt.DeliveryID, "error", err)
		return err
	}

	cfg := s.config()
	logger := s.logger.With("repo", evt.Repo, "issue", evt.Issue.Number, "delivery", evt.DeliveryID)

	decision, err := s.coord.Begin(ctx, evt.Repo, evt.Issue.Number, evt.DeliveryID)
	if err != nil {
		return err
	}
	if decision.State == StateSkipped {
		logger.Info("skipping triage", "reason", decision.Reason)
		return nil
	}

	candidates, resolution := s.findDuplicates(ctx, logger, cfg, evt)

	var selected []prioritize.Scored
	if len(candidates) == 0 {
		selected = s.reviewFindings(ctx, logger, cfg, evt)
	}

	action := "triaged"
	if len(candidates) > 0 {
		action = "duplicate"
	}

	var commentID string
	if body := buildReport(evt.Repo, evt.Issue.Number, candidates, selected); body != "" {
		commentID, err = s.postComment(ctx, evt.Repo, evt.Issue.Number, body)
		if err != nil {
			return fmt.Errorf("posting triage comment on %s#%d: %w", evt.Repo, evt.Issue.Number, err)
		}
		s.applyLabel(ctx, logger, cfg, evt, action)
	}

	s.coord.Complete(ctx, evt.Repo, evt.Issue.Number, len(candidates), commentID)

	if s.notifier != nil {
		summary := notify.Summary{
			Repo:            evt.Repo,
			IssueNumber:     evt.Issue.Number,
			Action:          action,
			DuplicateCount:  len(candidates),
			FindingCount:    len(selected),
			ThresholdSource: string(resolution.Source),
		}
		if err := s.notifier.Notify(ctx, summary); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}

	logger.Info("triage complete",
		"action", action,
		"duplicates", len(candidates),
		"findings", len(selected),
		"threshold_source", resolution.Source)
	return nil
}

func validateEvent(evt github.IssueEvent) error {
	if evt.Repo == "" || !strings.Contains(evt.Repo, "/") {
		return fmt.Errorf("invalid repo %q", evt.Repo)
	}
	if evt.Issue.Number <= 0 {
		return fmt.Errorf("invalid issue number %d", evt.Issue.Number)
	}
	return nil
}

// findDuplicates persists the issue, embeds it, and scans for similar open
// issues. Every failure on this path is logged and degrades to "no
// duplicates found" so a provider outage cannot block triage.
func (s *Service) findDuplicates(ctx context.Context, logger *slog.Logger, cfg *config.Config, evt github.IssueEvent) ([]dedup.Candidate, threshold.Resolution) {
	var resolution threshold.Resolution
	if s.embedder == nil || s.detector == nil {
		return nil, resolution
	}

	if err := s.issues.UpsertIssue(ctx, &store.Issue{
		Repo:      evt.Repo,
		Number:    evt.Issue.Number,
		Title:     evt.Issue.Title,
		State:     evt.Issue.State,
		Author:    evt.Issue.Author,
		CreatedAt: evt.Issue.CreatedAt,
		UpdatedAt: evt.Issue.UpdatedAt,
	}); err != nil {
		logger.Warn("issue upsert failed, skipping duplicate scan", "error", err)
		return nil, resolution
	}

	vector, err := s.embedder.Embed(ctx, composeEmbedText(evt.Issue))
	if err != nil {
		logger.Warn("embedding failed, skipping duplicate scan", "error", err)
		return nil, resolution
	}
	if err := s.issues.UpdateEmbedding(ctx, evt.Repo, evt.Issue.Number, dedup.EncodeEmbedding(vector), s.embedName); err != nil {
		logger.Warn("embedding store failed", "error", err)
	}

	result, err := s.detector.Find(ctx, evt.Repo, vector, evt.Issue.Number, cfg.SimilarityThresholdFor(evt.Repo))
	if err != nil {
		logger.Warn("duplicate scan failed", "error", err)
		return nil, resolution
	}
	return result.Candidates, result.Resolution
}

// composeEmbedText builds the text embedded for similarity comparison. Body
// text is truncated so pathological issues do not blow provider input caps.
func composeEmbedText(issue github.Issue) string {
	const maxBody = 4000
	body := issue.Body
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return issue.Title + "\n\n" + body
}

// reviewFindings runs the automated review and prioritizes its findings.
// Fails open: a review error means no findings, never a failed task.
func (s *Service) reviewFindings(ctx context.Context, logger *slog.Logger, cfg *config.Config, evt github.IssueEvent) []prioritize.Scored {
	if s.reviewer == nil {
		return nil
	}
	findings, err := s.reviewer.Review(ctx, evt.Repo, evt.Issue)
	if err != nil {
		logger.Warn("review failed, posting without findings", "error", err)
		return nil
	}
	if len(findings) == 0 {
		return nil
	}
	res := prioritize.Prioritize(findings, cfg.Defaults.MaxReviewComments, weightsFromConfig(cfg.Defaults.Weights))
	logger.Info("findings prioritized",
		"scored", res.Stats.FindingsScored,
		"selected", len(res.Selected),
		"top_score", res.Stats.TopScore,
		"cutoff_score", res.Stats.ThresholdScore)
	return res.Selected
}

func weightsFromConfig(w config.WeightsConfig) prioritize.Weights {
	return prioritize.Weights{
		Severity:   w.Severity,
		FileRisk:   w.FileRisk,
		Category:   w.Category,
		Recurrence: w.Recurrence,
	}
}

// postComment posts the triage report with retries. Permanent API errors
// stop the retry loop immediately.
func (s *Service) postComment(ctx context.Context, repo string, issueNumber int, body string) (string, error) {
	var commentID string
	err := retry.Do(ctx, retry.DefaultMaxAttempts, func() error {
		id, err := s.commenter.PostComment(ctx, repo, issueNumber, body)
		if err != nil {
			if github.IsPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		}
		commentID = id
		return nil
	})
	return commentID, err
}

// applyLabel labels the issue after the comment lands. Best-effort: the
// marker comment already carries the signal, a label is decoration.
func (s *Service) applyLabel(ctx context.Context, logger *slog.Logger, cfg *config.Config, evt github.IssueEvent, action string) {
	label := cfg.TriageLabelFor(evt.Repo)
	if action == "duplicate" {
		label = cfg.Defaults.DuplicateLabel
	}
	if label == "" {
		return
	}
	if err := s.commenter.ApplyLabel(ctx, evt.Repo, evt.Issue.Number, label); err != nil {
		logger.Warn("label apply failed", "label", label, "error", err)
	}
}
