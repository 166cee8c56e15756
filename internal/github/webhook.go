package github

import (
	"log/slog"
	"net/http"

	gogithub "github.com/google/go-github/v60/github"

	"github.com/rmercer/issuepilot/internal/pubsub"
)

// actionable lists the webhook actions worth triaging.
var actionable = map[string]bool{
	"opened":   true,
	"edited":   true,
	"reopened": true,
}

// WebhookHandler receives GitHub webhook deliveries, validates their
// signature, and publishes issue events to the broker. Delivery-ID
// deduplication happens upstream; a redelivered event reaching the handler
// is handled safely by the idempotency layers downstream.
type WebhookHandler struct {
	secret []byte
	broker *pubsub.Broker[IssueEvent]
	logger *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. secret may be empty to skip
// signature validation (local testing only).
func NewWebhookHandler(secret []byte, broker *pubsub.Broker[IssueEvent], logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret: secret,
		broker: broker,
		logger: logger,
	}
}

// ServeHTTP implements http.Handler. Malformed payloads are fatal-input:
// logged and dropped, never retried.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := gogithub.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("rejecting webhook with invalid payload", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	event, err := gogithub.ParseWebHook(gogithub.WebHookType(r), payload)
	if err != nil {
		h.logger.Warn("dropping unparseable webhook", "type", gogithub.WebHookType(r), "error", err)
		http.Error(w, "unparseable payload", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *gogithub.IssuesEvent:
		h.handleIssuesEvent(gogithub.DeliveryID(r), e)
	case *gogithub.PingEvent:
		// GitHub sends this on webhook creation.
	default:
		h.logger.Debug("ignoring webhook event", "type", gogithub.WebHookType(r))
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *WebhookHandler) handleIssuesEvent(deliveryID string, e *gogithub.IssuesEvent) {
	action := e.GetAction()
	if !actionable[action] {
		return
	}
	if e.GetIssue() == nil || e.GetRepo() == nil {
		h.logger.Warn("dropping issues event with missing fields", "delivery", deliveryID, "action", action)
		return
	}

	evt := IssueEvent{
		Repo:           e.GetRepo().GetFullName(),
		InstallationID: e.GetInstallation().GetID(),
		DeliveryID:     deliveryID,
		Action:         action,
		Issue:          issueFromAPI(e.GetIssue()),
	}

	h.logger.Info("webhook event accepted",
		"repo", evt.Repo,
		"issue", evt.Issue.Number,
		"action", action,
		"delivery", deliveryID,
	)
	h.broker.Publish(pubsub.Created, evt)
}
