package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rmercer/issuepilot/internal/threshold"
)

// Beta prior pseudo-counts for a repo with no feedback yet.
const (
	priorAlpha = 1.0
	priorBeta  = 1.0
)

// GetPosterior returns the learned threshold posterior for a repo, or nil
// when no feedback has accrued. Satisfies threshold.PosteriorStore.
func (d *DB) GetPosterior(ctx context.Context, repo string) (*threshold.Posterior, error) {
	var p threshold.Posterior
	err := d.db.QueryRowContext(ctx, `
		SELECT alpha, beta, sample_count
		FROM threshold_posteriors WHERE repo = ?`,
		repo,
	).Scan(&p.Alpha, &p.Beta, &p.SampleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying posterior for %s: %w", repo, err)
	}
	return &p, nil
}

// RecordThresholdFeedback folds one piece of human feedback ("was the
// duplicate flag correct?") into the repo's Beta posterior. Correct feedback
// increments alpha, incorrect increments beta; the closed-form update needs
// no training loop.
func (d *DB) RecordThresholdFeedback(ctx context.Context, repo string, correct bool) error {
	alphaInc, betaInc := 0.0, 1.0
	if correct {
		alphaInc, betaInc = 1.0, 0.0
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO threshold_posteriors (repo, alpha, beta, sample_count, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(repo) DO UPDATE SET
			alpha = alpha + ?,
			beta = beta + ?,
			sample_count = sample_count + 1,
			updated_at = excluded.updated_at`,
		repo, priorAlpha+alphaInc, priorBeta+betaInc, now, alphaInc, betaInc,
	)
	if err != nil {
		return fmt.Errorf("recording threshold feedback for %s: %w", repo, err)
	}
	return nil
}
