package store

import (
	"context"
	"fmt"
	"time"
)

// Issue is a stored GitHub issue with its (optional) embedding vector.
type Issue struct {
	ID             int64
	Repo           string
	Number         int
	Title          string
	State          string
	Author         string
	Embedding      []byte
	EmbeddingModel string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EmbeddedAt     *time.Time
}

// IssueEmbedding is the slice of issue data the similarity scan needs.
type IssueEmbedding struct {
	Number    int
	Title     string
	State     string
	Embedding []byte
}

// UpsertIssue inserts or updates an issue record.
func (d *DB) UpsertIssue(ctx context.Context, issue *Issue) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO issues (repo, number, title, state, author, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo, number) DO UPDATE SET
			title = excluded.title,
			state = excluded.state,
			author = excluded.author,
			updated_at = excluded.updated_at`,
		issue.Repo, issue.Number, issue.Title, issue.State, nullStr(issue.Author),
		issue.CreatedAt.UTC().Format(time.RFC3339), issue.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting issue %s#%d: %w", issue.Repo, issue.Number, err)
	}
	return nil
}

// UpdateEmbedding sets the embedding vector for an issue.
func (d *DB) UpdateEmbedding(ctx context.Context, repo string, number int, embedding []byte, model string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE issues
		SET embedding = ?, embedding_model = ?, embedded_at = ?
		WHERE repo = ? AND number = ?`,
		embedding, nullStr(model), time.Now().UTC().Format(time.RFC3339), repo, number,
	)
	if err != nil {
		return fmt.Errorf("updating embedding for %s#%d: %w", repo, number, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading embedding update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no issue row for %s#%d", repo, number)
	}
	return nil
}

// GetEmbeddingsForRepo returns all embedded issues for a repo.
func (d *DB) GetEmbeddingsForRepo(ctx context.Context, repo string) ([]IssueEmbedding, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT number, title, state, embedding
		FROM issues
		WHERE repo = ? AND embedding IS NOT NULL
		ORDER BY number`,
		repo,
	)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings for %s: %w", repo, err)
	}
	defer rows.Close()

	var embeddings []IssueEmbedding
	for rows.Next() {
		var ie IssueEmbedding
		if err := rows.Scan(&ie.Number, &ie.Title, &ie.State, &ie.Embedding); err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		embeddings = append(embeddings, ie)
	}
	return embeddings, rows.Err()
}
