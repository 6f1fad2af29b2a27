package usecase

import (
	"context"
	"path"
	"slices"
	"sync"

	"github.com/m-mizutani/assetfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/assetfetch/pkg/domain/model"
	"github.com/m-mizutani/assetfetch/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

type webhookUseCase struct {
	fetch        interfaces.FetchUseCase
	weightsDir   string
	repositories []string
	patterns     []string
	threads      int
	retry        int
	dispatch     func(ctx context.Context, handler func(ctx context.Context) error)

	// releases being mirrored, keyed by repository@tag
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// WebhookOption is a functional option for the webhook use case
type WebhookOption func(*webhookUseCase)

// WithRepositories restricts mirroring to the given owner/name repositories
func WithRepositories(repos ...string) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.repositories = append(uc.repositories, repos...)
	}
}

// WithAssetPatterns restricts mirroring to assets matching any of the path.Match patterns
func WithAssetPatterns(patterns ...string) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.patterns = append(uc.patterns, patterns...)
	}
}

// WithMirrorThreads sets the number of parallel downloads per release
func WithMirrorThreads(threads int) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.threads = threads
	}
}

// WithMirrorRetry sets the retry count of mirrored downloads
func WithMirrorRetry(retry int) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.retry = retry
	}
}

// WithDispatcher replaces async.Dispatch, e.g. to run mirroring synchronously
func WithDispatcher(dispatch func(ctx context.Context, handler func(ctx context.Context) error)) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.dispatch = dispatch
	}
}

// NewWebhook creates a new instance of WebhookUseCase mirroring release assets into weightsDir
func NewWebhook(fetch interfaces.FetchUseCase, weightsDir string, opts ...WebhookOption) (*webhookUseCase, error) {
	if weightsDir == "" {
		return nil, goerr.New("weights directory is required for mirroring")
	}
	uc := &webhookUseCase{
		fetch:      fetch,
		weightsDir: weightsDir,
		threads:    1,
		retry:      3,
		dispatch:   async.Dispatch,
		inFlight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(uc)
	}

	for _, pattern := range uc.patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, goerr.Wrap(err, "invalid asset pattern", goerr.V("pattern", pattern))
		}
	}

	return uc, nil
}

// ProcessEvent mirrors the assets of a release. Downloads run asynchronously;
// the returned flag reports whether a mirror batch was dispatched.
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"action", event.Action,
		"repository", event.Repository,
		"sender", event.Sender,
		"tag", event.Tag,
	)

	if !event.IsMirrorEvent() {
		logger.Debug("Ignoring event", "type", event.Type, "action", event.Action)
		return false, nil
	}

	if len(uc.repositories) > 0 && !slices.Contains(uc.repositories, event.Repository) {
		logger.Warn("Release from repository not allowed for mirroring", "repository", event.Repository)
		return false, nil
	}

	var urls []string
	for _, asset := range event.Assets {
		if asset.URL == "" || !uc.matchAsset(asset.Name) {
			continue
		}
		urls = append(urls, asset.URL)
	}

	if len(urls) == 0 {
		logger.Info("No assets to mirror", "repository", event.Repository, "tag", event.Tag)
		return false, nil
	}

	key := event.Repository + "@" + event.Tag
	if !uc.acquire(key) {
		logger.Info("Release is already being mirrored", "repository", event.Repository, "tag", event.Tag)
		return false, nil
	}

	req := &model.BatchRequest{
		URLs:    urls,
		Dir:     uc.weightsDir,
		Threads: uc.threads,
		Retry:   uc.retry,
	}

	logger.Info("Mirroring release assets",
		"repository", event.Repository,
		"tag", event.Tag,
		"asset_count", len(urls),
		"dir", uc.weightsDir,
	)

	uc.dispatch(ctx, func(ctx context.Context) error {
		defer uc.release(key)
		return uc.fetch.Download(ctx, req)
	})

	return true, nil
}

// acquire marks key as in flight. Two batches of the same release would write the same
// destination paths concurrently.
func (uc *webhookUseCase) acquire(key string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, ok := uc.inFlight[key]; ok {
		return false
	}
	uc.inFlight[key] = struct{}{}
	return true
}

func (uc *webhookUseCase) release(key string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.inFlight, key)
}

func (uc *webhookUseCase) matchAsset(name string) bool {
	if len(uc.patterns) == 0 {
		return true
	}
	for _, pattern := range uc.patterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
