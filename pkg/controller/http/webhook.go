package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/assetfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/assetfetch/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	secret    string
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		webhookUC: webhookUC,
	}
}

// Handle verifies and parses a webhook request and hands it to the use case.
// Events that start mirroring are answered with 202.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, r, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !h.verifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
		logger.Warn("Invalid webhook signature")
		writeError(w, r, goerr.New("invalid signature"), http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		logger.Warn("Failed to parse webhook payload", "error", err, "event_type", eventType)
		writeError(w, r, goerr.Wrap(err, "invalid webhook payload"), http.StatusBadRequest)
		return
	}

	event := newWebhookEvent(r.Header.Get("X-GitHub-Delivery"), eventType, payload)

	dispatched, err := h.webhookUC.ProcessEvent(ctx, event)
	if err != nil {
		logger.Error("Failed to process webhook event", "error", err)
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if dispatched {
		status = http.StatusAccepted
	}
	writeJSON(w, r, status, map[string]string{
		"status": "success",
	})
}

func newWebhookEvent(id, eventType string, payload any) *model.WebhookEvent {
	event := &model.WebhookEvent{
		ID:         id,
		Type:       model.WebhookEventType(eventType),
		ReceivedAt: time.Now(),
	}

	switch e := payload.(type) {
	case *github.ReleaseEvent:
		event.Action = e.GetAction()
		event.Repository = e.GetRepo().GetFullName()
		event.Sender = e.GetSender().GetLogin()
		if release := e.GetRelease(); release != nil {
			event.Tag = release.GetTagName()
			for _, asset := range release.Assets {
				event.Assets = append(event.Assets, model.ReleaseAsset{
					Name: asset.GetName(),
					URL:  asset.GetBrowserDownloadURL(),
				})
			}
		}
	case *github.PingEvent:
		event.Type = model.EventTypePing
	default:
		event.Type = model.EventTypeUnknown
	}

	return event
}

// verifySignature verifies the X-Hub-Signature-256 HMAC of the payload
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}
