package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	controller "github.com/m-mizutani/assetfetch/pkg/controller/http"
	"github.com/m-mizutani/assetfetch/pkg/domain/model"
)

// mockWebhookUseCase records processed events
type mockWebhookUseCase struct {
	events     []*model.WebhookEvent
	dispatched bool
	err        error
}

func (m *mockWebhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	m.events = append(m.events, event)
	return m.dispatched, m.err
}

// generateSignature generates HMAC-SHA256 signature for testing
func generateSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookRequest(t *testing.T, secret, eventType string, payload any) *http.Request {
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/hooks/github", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-GitHub-Delivery", "test-delivery")
	req.Header.Set("X-Hub-Signature-256", generateSignature(secret, body))
	return req
}

var releasePayload = map[string]any{
	"action": "released",
	"release": map[string]any{
		"id":       1,
		"tag_name": "v8.1.0",
		"assets": []map[string]any{
			{"name": "yolov8n.pt", "browser_download_url": "https://github.com/ultralytics/assets/releases/download/v8.1.0/yolov8n.pt"},
			{"name": "yolov8s.pt", "browser_download_url": "https://github.com/ultralytics/assets/releases/download/v8.1.0/yolov8s.pt"},
		},
	},
	"repository": map[string]any{"full_name": "ultralytics/assets"},
	"sender":     map[string]any{"login": "testuser"},
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name           string
		signature      string
		wantStatusCode int
	}{
		{name: "Valid signature", signature: "", wantStatusCode: http.StatusOK},
		{name: "Invalid signature", signature: "sha256=invalid", wantStatusCode: http.StatusUnauthorized},
		{name: "Missing signature", signature: "-", wantStatusCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockWebhookUseCase{}
			handler := controller.NewWebhookHandler(secret, uc)

			req := newWebhookRequest(t, secret, "ping", map[string]any{"zen": "Keep it logically awesome."})
			switch tt.signature {
			case "":
			case "-":
				req.Header.Del("X-Hub-Signature-256")
			default:
				req.Header.Set("X-Hub-Signature-256", tt.signature)
			}

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Handle() status = %v, want %v", w.Code, tt.wantStatusCode)
			}
			if tt.wantStatusCode != http.StatusOK && len(uc.events) != 0 {
				t.Errorf("use case must not be called on rejected request")
			}
		})
	}
}

func TestWebhookHandler_ReleaseEvent(t *testing.T) {
	secret := "test-secret"
	uc := &mockWebhookUseCase{dispatched: true}
	handler := controller.NewWebhookHandler(secret, uc)

	w := httptest.NewRecorder()
	handler.Handle(w, newWebhookRequest(t, secret, "release", releasePayload))

	if w.Code != http.StatusAccepted {
		t.Fatalf("Handle() status = %v, want %v, body = %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	if len(uc.events) != 1 {
		t.Fatalf("ProcessEvent called %d times, want 1", len(uc.events))
	}

	event := uc.events[0]
	if event.Type != model.EventTypeRelease || event.Action != "released" {
		t.Errorf("event = %s/%s, want release/released", event.Type, event.Action)
	}
	if event.Repository != "ultralytics/assets" {
		t.Errorf("Repository = %v, want ultralytics/assets", event.Repository)
	}
	if event.Sender != "testuser" {
		t.Errorf("Sender = %v, want testuser", event.Sender)
	}
	if event.Tag != "v8.1.0" {
		t.Errorf("Tag = %v, want v8.1.0", event.Tag)
	}
	if event.ID != "test-delivery" {
		t.Errorf("ID = %v, want test-delivery", event.ID)
	}
	if len(event.Assets) != 2 || event.Assets[1].Name != "yolov8s.pt" {
		t.Errorf("Assets = %+v", event.Assets)
	}
}

func TestWebhookHandler_ReleaseNotMirrored(t *testing.T) {
	secret := "test-secret"
	uc := &mockWebhookUseCase{dispatched: false}
	handler := controller.NewWebhookHandler(secret, uc)

	w := httptest.NewRecorder()
	handler.Handle(w, newWebhookRequest(t, secret, "release", releasePayload))

	if w.Code != http.StatusOK {
		t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusOK)
	}
	if len(uc.events) != 1 || !uc.events[0].IsMirrorEvent() {
		t.Errorf("events = %+v, want one released event", uc.events)
	}
}

func TestWebhookHandler_EventParsing(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name           string
		eventType      string
		payload        any
		wantType       model.WebhookEventType
		wantStatusCode int
	}{
		{
			name:           "Ping event",
			eventType:      "ping",
			payload:        map[string]any{"zen": "Design for failure."},
			wantType:       model.EventTypePing,
			wantStatusCode: http.StatusOK,
		},
		{
			name:      "Release created is not mirrored",
			eventType: "release",
			payload: map[string]any{
				"action":     "created",
				"release":    map[string]any{"id": 1, "tag_name": "v1"},
				"repository": map[string]any{"full_name": "test/repo"},
			},
			wantType:       model.EventTypeRelease,
			wantStatusCode: http.StatusOK,
		},
		{
			name:      "Pull request is unknown",
			eventType: "pull_request",
			payload: map[string]any{
				"action":       "opened",
				"pull_request": map[string]any{"id": 1},
			},
			wantType:       model.EventTypeUnknown,
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockWebhookUseCase{}
			handler := controller.NewWebhookHandler(secret, uc)

			w := httptest.NewRecorder()
			handler.Handle(w, newWebhookRequest(t, secret, tt.eventType, tt.payload))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("Handle() status = %v, want %v, body = %s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if len(uc.events) != 1 || uc.events[0].Type != tt.wantType {
				t.Errorf("events = %+v, want one event of type %s", uc.events, tt.wantType)
			}

			var response map[string]string
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Errorf("Failed to decode response: %v", err)
			}
			if response["status"] != "success" {
				t.Errorf("Response status = %v, want success", response["status"])
			}
		})
	}
}

func TestWebhookHandler_Errors(t *testing.T) {
	secret := "test-secret"

	t.Run("unknown event type", func(t *testing.T) {
		handler := controller.NewWebhookHandler(secret, &mockWebhookUseCase{})
		w := httptest.NewRecorder()
		handler.Handle(w, newWebhookRequest(t, secret, "not_an_event", map[string]any{}))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("use case failure", func(t *testing.T) {
		handler := controller.NewWebhookHandler(secret, &mockWebhookUseCase{err: errors.New("boom")})
		w := httptest.NewRecorder()
		handler.Handle(w, newWebhookRequest(t, secret, "release", releasePayload))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusInternalServerError)
		}
	})
}

func TestWebhookHandler_Integration(t *testing.T) {
	ctx := context.Background()
	secret := "integration-test-secret"
	uc := &mockWebhookUseCase{dispatched: true}

	server, err := controller.NewServer(
		ctx,
		uc,
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret(secret),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	payloadBytes, _ := json.Marshal(releasePayload)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/hooks/github", bytes.NewReader(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "release")
	req.Header.Set("X-GitHub-Delivery", "integration-test")
	req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payloadBytes))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer func() {
		_ = resp.Body.Close() // Error ignored in test
	}()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Status code = %v, want %v", resp.StatusCode, http.StatusAccepted)
	}
	if len(uc.events) != 1 {
		t.Errorf("ProcessEvent called %d times, want 1", len(uc.events))
	}
}
