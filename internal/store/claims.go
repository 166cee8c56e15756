package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TriageClaim is the persisted claim row for one (repo, issue) pair. At most
// one row exists per pair; TriagedAt only advances when a claim succeeds.
type TriageClaim struct {
	ID                int64
	Repo              string
	IssueNumber       int
	DeliveryID        string
	TriagedAt         time.Time
	DuplicateCount    int
	CommentExternalID string
}

// ClaimResult reports whether a claim attempt won and the row as it stands
// after the attempt.
type ClaimResult struct {
	Claimed bool
	Row     *TriageClaim
}

// Claim attempts to take ownership of triaging (repo, issueNumber) for the
// given webhook delivery. The write is a single conditional upsert: a row is
// inserted if absent, or updated only when the existing triaged_at is older
// than now minus cooldown. Exactly one of any set of concurrent identical
// claims observes Claimed=true within a cooldown window, even across
// processes sharing the database file.
func (d *DB) Claim(ctx context.Context, repo string, issueNumber int, deliveryID string, cooldown time.Duration) (*ClaimResult, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-cooldown)

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO triage_claims (repo, issue_number, delivery_id, triaged_at, duplicate_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(repo, issue_number) DO UPDATE SET
			delivery_id = excluded.delivery_id,
			triaged_at = excluded.triaged_at,
			duplicate_count = 0
		WHERE triage_claims.triaged_at < ?`,
		repo, issueNumber, deliveryID, now.Format(time.RFC3339), cutoff.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("claiming %s#%d: %w", repo, issueNumber, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading claim result for %s#%d: %w", repo, issueNumber, err)
	}

	row, err := d.GetClaim(ctx, repo, issueNumber)
	if err != nil {
		return nil, err
	}

	return &ClaimResult{
		Claimed: affected > 0,
		Row:     row,
	}, nil
}

// GetClaim returns the claim row for (repo, issueNumber), or nil if none
// exists.
func (d *DB) GetClaim(ctx context.Context, repo string, issueNumber int) (*TriageClaim, error) {
	var claim TriageClaim
	var triagedAt string
	var commentID sql.NullString

	err := d.db.QueryRowContext(ctx, `
		SELECT id, repo, issue_number, delivery_id, triaged_at, duplicate_count, comment_external_id
		FROM triage_claims WHERE repo = ? AND issue_number = ?`,
		repo, issueNumber,
	).Scan(&claim.ID, &claim.Repo, &claim.IssueNumber, &claim.DeliveryID,
		&triagedAt, &claim.DuplicateCount, &commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying claim for %s#%d: %w", repo, issueNumber, err)
	}

	claim.TriagedAt, _ = time.Parse(time.RFC3339, triagedAt)
	claim.CommentExternalID = commentID.String
	return &claim, nil
}

// CompleteClaim records the outcome of a successful triage action on an
// existing claim row. The claim itself is not re-validated here; callers
// treat a failure as best-effort bookkeeping loss, not a reason to revert.
func (d *DB) CompleteClaim(ctx context.Context, repo string, issueNumber, duplicateCount int, commentExternalID string) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE triage_claims
		SET duplicate_count = ?, comment_external_id = ?
		WHERE repo = ? AND issue_number = ?`,
		duplicateCount, nullStr(commentExternalID), repo, issueNumber,
	)
	if err != nil {
		return fmt.Errorf("completing claim for %s#%d: %w", repo, issueNumber, err)
	}
	return nil
}
