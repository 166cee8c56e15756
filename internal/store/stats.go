package store

import (
	"context"
	"fmt"
)

// RepoStats holds aggregate triage statistics for a single repository.
type RepoStats struct {
	Repo            string
	ClaimCount      int
	DuplicateCount  int
	EmbeddingCount  int
	FeedbackSamples int
	PosteriorMean   float64
}

// GetRepoStats returns aggregate statistics for one repo.
func (d *DB) GetRepoStats(ctx context.Context, repo string) (*RepoStats, error) {
	stats := &RepoStats{Repo: repo}

	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM triage_claims WHERE repo = ?`, repo,
	).Scan(&stats.ClaimCount)
	if err != nil {
		return nil, fmt.Errorf("counting claims: %w", err)
	}

	err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM triage_claims WHERE repo = ? AND duplicate_count > 0`, repo,
	).Scan(&stats.DuplicateCount)
	if err != nil {
		return nil, fmt.Errorf("counting duplicate claims: %w", err)
	}

	err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issues WHERE repo = ? AND embedding IS NOT NULL`, repo,
	).Scan(&stats.EmbeddingCount)
	if err != nil {
		return nil, fmt.Errorf("counting embeddings: %w", err)
	}

	post, err := d.GetPosterior(ctx, repo)
	if err != nil {
		return nil, err
	}
	if post != nil {
		stats.FeedbackSamples = post.SampleCount
		stats.PosteriorMean = post.Mean()
	}

	return stats, nil
}

// ListRepos returns every repo that has at least one claim or issue row.
func (d *DB) ListRepos(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT repo FROM triage_claims
		UNION
		SELECT repo FROM issues
		ORDER BY repo`)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("scanning repo: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// GetAllRepoStats returns statistics for every tracked repo.
func (d *DB) GetAllRepoStats(ctx context.Context) ([]RepoStats, error) {
	repos, err := d.ListRepos(ctx)
	if err != nil {
		return nil, err
	}

	var results []RepoStats
	for _, repo := range repos {
		stats, err := d.GetRepoStats(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("getting stats for %s: %w", repo, err)
		}
		results = append(results, *stats)
	}
	return results, nil
}
