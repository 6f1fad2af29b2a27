package interfaces

import (
	"context"

	"github.com/m-mizutani/assetfetch/pkg/domain/model"
)

// FetchUseCase resolves and downloads assets
type FetchUseCase interface {
	// AttemptDownloadAsset resolves a file reference to a local path, downloading it if needed
	AttemptDownloadAsset(ctx context.Context, file, repo, release string) (string, error)

	// SafeDownload downloads one file with retry, size guard and optional extraction
	SafeDownload(ctx context.Context, req *model.DownloadRequest) *model.DownloadResult

	// Download downloads many files into one directory
	Download(ctx context.Context, req *model.BatchRequest) error

	// IsURL checks whether candidate is a URL, optionally probing that it exists
	IsURL(ctx context.Context, candidate string, verify bool) bool
}

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent processes a webhook event and reports whether mirroring was started
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) (bool, error)
}
