package github

import "time"

// Issue is the slice of a GitHub issue the triage core works with.
type Issue struct {
	Number    int
	Title     string
	Body      string
	State     string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment is a comment on an issue, as returned by the comment provider.
type Comment struct {
	ExternalID string
	Author     string
	Body       string
	CreatedAt  time.Time
}

// IssueEvent is one webhook delivery's worth of issue change, already
// deduplicated by delivery ID upstream.
type IssueEvent struct {
	// Repo is the "owner/name" full repository name.
	Repo string
	// InstallationID identifies the tenant the event belongs to.
	InstallationID int64
	// DeliveryID is the webhook delivery identifier for this event.
	DeliveryID string
	// Action is the raw webhook action ("opened", "edited", ...).
	Action string
	Issue  Issue
}
