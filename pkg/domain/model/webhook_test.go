package model_test

import (
	"testing"

	"github.com/m-mizutani/assetfetch/pkg/domain/model"
)

func TestWebhookEvent_IsMirrorEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    *model.WebhookEvent
		expected bool
	}{
		{
			name: "Release released - mirrored",
			event: &model.WebhookEvent{
				Type:   model.EventTypeRelease,
				Action: "released",
			},
			expected: true,
		},
		{
			name: "Release published - not mirrored, released follows",
			event: &model.WebhookEvent{
				Type:   model.EventTypeRelease,
				Action: "published",
			},
			expected: false,
		},
		{
			name: "Release created - not mirrored",
			event: &model.WebhookEvent{
				Type:   model.EventTypeRelease,
				Action: "created",
			},
			expected: false,
		},
		{
			name: "Release deleted - not mirrored",
			event: &model.WebhookEvent{
				Type:   model.EventTypeRelease,
				Action: "deleted",
			},
			expected: false,
		},
		{
			name: "Ping event",
			event: &model.WebhookEvent{
				Type: model.EventTypePing,
			},
			expected: false,
		},
		{
			name: "Unknown event type",
			event: &model.WebhookEvent{
				Type:   model.EventTypeUnknown,
				Action: "released",
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.event.IsMirrorEvent()
			if got != tt.expected {
				t.Errorf("IsMirrorEvent() = %v, want %v", got, tt.expected)
			}
		})
	}
}
