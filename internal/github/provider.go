package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// recentCommentsPerPage bounds the marker scan: only the newest comments matter.
const recentCommentsPerPage = 30

// Provider implements the issue/comment operations the triage core needs,
// backed by the GitHub REST API.
type Provider struct {
	client *gogithub.Client
}

// NewProvider wraps an authenticated go-github client.
func NewProvider(client *gogithub.Client) *Provider {
	return &Provider{client: client}
}

// splitRepo splits an "owner/name" full repository name.
func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %q", repo)
	}
	return parts[0], parts[1], nil
}

// GetIssue fetches a single issue.
func (p *Provider) GetIssue(ctx context.Context, repo string, issueNumber int) (*Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	raw, _, err := p.client.Issues.Get(ctx, owner, name, issueNumber)
	if err != nil {
		return nil, classifyError(fmt.Errorf("fetching %s#%d: %w", repo, issueNumber, err))
	}

	issue := issueFromAPI(raw)
	return &issue, nil
}

// ListRecentComments returns the most recent comments on an issue, newest
// first. Errors are classified into the transient/permanent taxonomy.
func (p *Provider) ListRecentComments(ctx context.Context, repo string, issueNumber int) ([]Comment, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &gogithub.IssueListCommentsOptions{
		Sort:      gogithub.String("created"),
		Direction: gogithub.String("desc"),
		ListOptions: gogithub.ListOptions{
			PerPage: recentCommentsPerPage,
		},
	}

	raw, _, err := p.client.Issues.ListComments(ctx, owner, name, issueNumber, opts)
	if err != nil {
		return nil, classifyError(fmt.Errorf("listing comments for %s#%d: %w", repo, issueNumber, err))
	}

	comments := make([]Comment, 0, len(raw))
	for _, c := range raw {
		comments = append(comments, Comment{
			ExternalID: strconv.FormatInt(c.GetID(), 10),
			Author:     c.GetUser().GetLogin(),
			Body:       c.GetBody(),
			CreatedAt:  c.GetCreatedAt().Time,
		})
	}
	return comments, nil
}

// PostComment posts a comment on an issue and returns its external ID.
func (p *Provider) PostComment(ctx context.Context, repo string, issueNumber int, body string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}

	comment, _, err := p.client.Issues.CreateComment(ctx, owner, name, issueNumber, &gogithub.IssueComment{
		Body: gogithub.String(body),
	})
	if err != nil {
		return "", classifyError(fmt.Errorf("posting comment on %s#%d: %w", repo, issueNumber, err))
	}

	return strconv.FormatInt(comment.GetID(), 10), nil
}

// ApplyLabel adds a label to an issue.
func (p *Provider) ApplyLabel(ctx context.Context, repo string, issueNumber int, label string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, _, err = p.client.Issues.AddLabelsToIssue(ctx, owner, name, issueNumber, []string{label})
	if err != nil {
		return classifyError(fmt.Errorf("applying label %q to %s#%d: %w", label, repo, issueNumber, err))
	}
	return nil
}

// issueFromAPI converts a go-github issue into the local representation.
func issueFromAPI(issue *gogithub.Issue) Issue {
	var created, updated time.Time
	if issue.CreatedAt != nil {
		created = issue.CreatedAt.Time
	}
	if issue.UpdatedAt != nil {
		updated = issue.UpdatedAt.Time
	}
	return Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		State:     issue.GetState(),
		Author:    issue.GetUser().GetLogin(),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
