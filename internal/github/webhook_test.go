package github

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rmercer/issuepilot/internal/pubsub"
)

const issuesPayload = `{
	"action": "opened",
	"issue": {
		"number": 42,
		"title": "panic on empty input",
		"body": "stack trace attached",
		"state": "open",
		"user": {"login": "octocat"}
	},
	"repository": {"full_name": "acme/widgets"},
	"installation": {"id": 123}
}`

func newWebhookRequest(event, payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-abc")
	return req
}

func recvEvent(t *testing.T, ch <-chan pubsub.Event[IssueEvent]) IssueEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt.Payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
		return IssueEvent{}
	}
}

func TestWebhookPublishesIssueEvent(t *testing.T) {
	broker := pubsub.NewBroker[IssueEvent]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	h := NewWebhookHandler(nil, broker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newWebhookRequest("issues", issuesPayload))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	evt := recvEvent(t, events)
	if evt.Repo != "acme/widgets" {
		t.Errorf("Repo = %q", evt.Repo)
	}
	if evt.Issue.Number != 42 || evt.Issue.Title != "panic on empty input" {
		t.Errorf("Issue = %+v", evt.Issue)
	}
	if evt.InstallationID != 123 {
		t.Errorf("InstallationID = %d, want 123", evt.InstallationID)
	}
	if evt.DeliveryID != "delivery-abc" {
		t.Errorf("DeliveryID = %q", evt.DeliveryID)
	}
	if evt.Action != "opened" {
		t.Errorf("Action = %q", evt.Action)
	}
}

func TestWebhookIgnoresNonActionableAction(t *testing.T) {
	broker := pubsub.NewBroker[IssueEvent]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	payload := strings.Replace(issuesPayload, `"opened"`, `"labeled"`, 1)
	h := NewWebhookHandler(nil, broker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newWebhookRequest("issues", payload))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	select {
	case evt := <-events:
		t.Fatalf("unexpected event published: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	broker := pubsub.NewBroker[IssueEvent]()
	h := NewWebhookHandler(nil, broker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newWebhookRequest("issues", "{not json"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	broker := pubsub.NewBroker[IssueEvent]()
	h := NewWebhookHandler([]byte("topsecret"), broker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := newWebhookRequest("issues", issuesPayload)
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	broker := pubsub.NewBroker[IssueEvent]()
	h := NewWebhookHandler(nil, broker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newWebhookRequest("ping", `{"zen": "Keep it simple."}`))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}
