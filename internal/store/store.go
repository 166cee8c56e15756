package store

import (
	"context"
	"time"
)

// ClaimStore is the conditional-claim surface consumed by the idempotency
// coordinator. Satisfied by *DB and replaceable with a mock for testing.
type ClaimStore interface {
	// Claim performs the atomic conditional upsert for (repo, issueNumber).
	Claim(ctx context.Context, repo string, issueNumber int, deliveryID string, cooldown time.Duration) (*ClaimResult, error)

	// GetClaim returns the current claim row, or nil when absent.
	GetClaim(ctx context.Context, repo string, issueNumber int) (*TriageClaim, error)

	// CompleteClaim records post-action bookkeeping on the claim row.
	CompleteClaim(ctx context.Context, repo string, issueNumber, duplicateCount int, commentExternalID string) error
}

// EmbeddingStore is the issue/embedding surface used by duplicate detection.
type EmbeddingStore interface {
	// UpsertIssue inserts or updates an issue record.
	UpsertIssue(ctx context.Context, issue *Issue) error

	// UpdateEmbedding sets the embedding vector for an issue.
	UpdateEmbedding(ctx context.Context, repo string, number int, embedding []byte, model string) error

	// GetEmbeddingsForRepo returns all embedded issues for a repo.
	GetEmbeddingsForRepo(ctx context.Context, repo string) ([]IssueEmbedding, error)
}

// FeedbackStore records duplicate-flag feedback into the Beta posterior.
type FeedbackStore interface {
	RecordThresholdFeedback(ctx context.Context, repo string, correct bool) error
}

// Compile-time checks that *DB satisfies the storage interfaces.
var (
	_ ClaimStore     = (*DB)(nil)
	_ EmbeddingStore = (*DB)(nil)
	_ FeedbackStore  = (*DB)(nil)
)
