package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypeRelease WebhookEventType = "release"
	EventTypePing    WebhookEventType = "ping"
	EventTypeUnknown WebhookEventType = "unknown"
)

// ReleaseAsset is a downloadable file attached to a release
type ReleaseAsset struct {
	Name string
	URL  string // browser_download_url
}

// WebhookEvent represents a webhook event received from GitHub
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Action     string           // Event action (e.g., released, published)
	Repository string           // Repository full name, owner/name
	Sender     string           // Sender username
	Tag        string           // Release tag name
	Assets     []ReleaseAsset   // Release assets
	ReceivedAt time.Time        // Time when the event was received
}

// IsMirrorEvent checks if the event announces a release whose assets should be mirrored.
// Only "released" is accepted: GitHub also sends "published" for the same release, and
// "released" additionally covers a prerelease promoted to a full release.
func (e *WebhookEvent) IsMirrorEvent() bool {
	return e.Type == EventTypeRelease && e.Action == "released"
}
