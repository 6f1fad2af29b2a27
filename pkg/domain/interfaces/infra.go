package interfaces

import (
	"context"

	"github.com/m-mizutani/assetfetch/pkg/domain/model"
)

// Transport transfers a remote file to a local path
type Transport interface {
	// Download writes the content of url to dst. A partially written dst may remain on error.
	Download(ctx context.Context, url, dst string, progress bool) error
}

// ReleaseClient looks up release metadata of a repository
type ReleaseClient interface {
	// GetRelease returns the release for tag, or the latest release when tag is "latest"
	GetRelease(ctx context.Context, repo model.Repository, tag string) (*model.Release, error)
}

// TagSource provides a release tag known locally
type TagSource interface {
	// LatestTag returns the most recent local tag
	LatestTag(ctx context.Context) (string, error)
}
