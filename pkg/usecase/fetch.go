package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/m-mizutani/assetfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/assetfetch/pkg/domain/model"
	"github.com/m-mizutani/assetfetch/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

type fetchUseCase struct {
	primary      interfaces.Transport
	external     interfaces.Transport
	releases     interfaces.ReleaseClient
	tags         interfaces.TagSource
	probeClient  *http.Client
	weightsDir   string
	workDir      string
	downloadHost string
}

// FetchOption is a functional option for the fetch use case
type FetchOption func(*fetchUseCase)

// WithReleaseClient sets the release metadata source used for bare asset names
func WithReleaseClient(client interfaces.ReleaseClient) FetchOption {
	return func(uc *fetchUseCase) {
		uc.releases = client
	}
}

// WithTagSource sets the local tag source used when release metadata is unreachable
func WithTagSource(tags interfaces.TagSource) FetchOption {
	return func(uc *fetchUseCase) {
		uc.tags = tags
	}
}

// WithWeightsDir sets the weights cache directory
func WithWeightsDir(dir string) FetchOption {
	return func(uc *fetchUseCase) {
		uc.weightsDir = dir
	}
}

// WithWorkDir sets the directory relative file references are resolved against
func WithWorkDir(dir string) FetchOption {
	return func(uc *fetchUseCase) {
		uc.workDir = dir
	}
}

// WithDownloadHost sets the host serving release asset downloads
func WithDownloadHost(host string) FetchOption {
	return func(uc *fetchUseCase) {
		uc.downloadHost = strings.TrimRight(host, "/")
	}
}

// WithProbeClient sets the HTTP client used by IsURL to verify existence
func WithProbeClient(client *http.Client) FetchOption {
	return func(uc *fetchUseCase) {
		uc.probeClient = client
	}
}

// NewFetch creates a new FetchUseCase. primary serves the first attempt, external every retry.
func NewFetch(primary, external interfaces.Transport, opts ...FetchOption) interfaces.FetchUseCase {
	uc := &fetchUseCase{
		primary:      primary,
		external:     external,
		probeClient:  http.DefaultClient,
		downloadHost: types.DefaultDownloadHost,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// AttemptDownloadAsset resolves file to a local path. Existing local files and files in the
// weights directory are returned as-is; URLs and release assets are downloaded. A bare name that
// is not an asset of the release is returned without downloading.
func (uc *fetchUseCase) AttemptDownloadAsset(ctx context.Context, file, repo, release string) (string, error) {
	logger := ctxlog.From(ctx)

	file = strings.TrimSpace(strings.ReplaceAll(file, "'", ""))
	if file == "" {
		return "", goerr.New("empty file reference")
	}

	local := uc.localPath(file)
	if isFile(local) {
		return local, nil
	}

	if uc.weightsDir != "" {
		cached := filepath.Join(uc.weightsDir, file)
		if isFile(cached) {
			return cached, nil
		}
	}

	if isHTTPURL(file) {
		src := normalizeURL(file)
		name := urlFileName(src)
		if !model.ValidFileName(name) {
			return "", goerr.New("URL has no file name", goerr.V("url", src))
		}
		local = uc.localPath(name)
		if isFile(local) {
			logger.Info("Found asset locally", "url", src, "path", local)
			return local, nil
		}

		uc.SafeDownload(ctx, &model.DownloadRequest{
			URL:      src,
			File:     local,
			Unzip:    true,
			Retry:    types.DefaultRetry,
			MinBytes: types.AssetMinBytes,
			Progress: true,
		})
		return local, nil
	}

	repository, err := model.ParseRepository(repo)
	if err != nil {
		return "", err
	}

	name := filepath.Base(unescape(file))
	release = strings.TrimSpace(release)
	if release == "" {
		release = types.DefaultRelease
	}
	tag, assets := uc.resolveRelease(ctx, repository, release)

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create parent directory", goerr.V("path", local))
	}

	asset := &model.Release{Tag: tag, Assets: assets}
	if !asset.HasAsset(name) {
		logger.Debug("Asset not found in release",
			"name", name,
			"repository", repository.String(),
			"tag", tag,
		)
		return local, nil
	}

	uc.SafeDownload(ctx, &model.DownloadRequest{
		URL:      uc.downloadHost + "/" + repository.String() + "/releases/download/" + tag + "/" + name,
		File:     local,
		Unzip:    true,
		Retry:    types.DefaultRetry,
		MinBytes: types.AssetMinBytes,
		Progress: true,
	})

	return local, nil
}

// resolveRelease returns the release tag and asset names, falling back from the requested
// release to the latest release, then to the local git tag, then to the requested name itself.
// The asset list falls back to the built-in model names once both lookups fail.
func (uc *fetchUseCase) resolveRelease(ctx context.Context, repo model.Repository, release string) (string, []string) {
	logger := ctxlog.From(ctx)

	for _, tag := range []string{release, types.LatestRelease} {
		rel, err := uc.getRelease(ctx, repo, tag)
		if err == nil {
			return rel.Tag, rel.Assets
		}
		logger.Debug("Release lookup failed", "repository", repo.String(), "tag", tag, "error", err)
	}

	assets := types.DefaultAssets()

	if uc.tags != nil {
		tag, err := uc.tags.LatestTag(ctx)
		if err == nil {
			return tag, assets
		}
		logger.Debug("Local tag lookup failed", "error", err)
	}

	return release, assets
}

func (uc *fetchUseCase) getRelease(ctx context.Context, repo model.Repository, tag string) (*model.Release, error) {
	if uc.releases == nil {
		return nil, goerr.New("release client is not configured")
	}
	return uc.releases.GetRelease(ctx, repo, tag)
}

// SafeDownload downloads req.URL with retry. Every failed attempt removes the partial file;
// failure is reported only through the result.
func (uc *fetchUseCase) SafeDownload(ctx context.Context, req *model.DownloadRequest) *model.DownloadResult {
	logger := ctxlog.From(ctx)
	result := &model.DownloadResult{}

	var f string
	if !strings.Contains(req.URL, "://") && isFile(req.URL) {
		f = req.URL
		result.Success = true
	} else {
		dst, err := req.Destination()
		if err != nil {
			logger.Warn("Invalid download request", "error", err)
			return result
		}
		f = dst

		if st, err := os.Stat(f); err == nil && st.IsDir() {
			logger.Warn("Download destination is a directory", "path", f)
			return result
		}

		if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
			logger.Warn("Failed to create download directory", "path", f, "error", err)
			return result
		}

		logger.Info("Downloading", "url", req.URL, "path", f)
		result.Success = uc.downloadWithRetry(ctx, req, f, result)
	}

	if !result.Success {
		return result
	}

	if req.Unzip && isArchive(f) {
		logger.Info("Unzipping", "path", f)
		files, err := extractArchive(ctx, f)
		if err != nil {
			logger.Warn("Failed to extract archive", "path", f, "error", err)
			result.Success = false
			return result
		}
		logger.Debug("Extracted archive", "path", f, "file_count", len(files))

		if req.Delete {
			if err := os.Remove(f); err != nil {
				logger.Warn("Failed to remove archive", "path", f, "error", err)
			}
		}
	}

	result.Path = f
	return result
}

func (uc *fetchUseCase) downloadWithRetry(ctx context.Context, req *model.DownloadRequest, f string, result *model.DownloadResult) bool {
	logger := ctxlog.From(ctx)
	retry := max(req.Retry, 0)

	for i := 0; i <= retry; i++ {
		if ctx.Err() != nil {
			logger.Warn("Download cancelled", "url", req.URL, "error", ctx.Err())
			return false
		}

		transport := uc.primary
		if req.External || i > 0 {
			transport = uc.external
		}

		result.Attempts++
		err := transport.Download(ctx, req.URL, f, req.Progress)
		if err == nil {
			size, ok := fileSize(f)
			if ok && size > req.MinBytes {
				return true
			}
			err = goerr.New("downloaded file is missing or too small",
				goerr.V("size", size),
				goerr.V("min_bytes", req.MinBytes))
		}

		removePartial(ctx, f)

		if i < retry {
			logger.Warn("Download failure, retrying",
				"attempt", i+1,
				"retry", retry,
				"url", req.URL,
				"error", err,
			)
		} else {
			logger.Warn("Failed to download", "url", req.URL, "error", err)
		}
	}

	return false
}

// Download fetches every URL into req.Dir, in parallel when req.Threads > 1. Per-file outcomes
// are only visible on disk.
func (uc *fetchUseCase) Download(ctx context.Context, req *model.BatchRequest) error {
	logger := ctxlog.From(ctx).With("batch_id", uuid.NewString())
	ctx = ctxlog.With(ctx, logger)

	dir := req.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create download directory", goerr.V("dir", dir))
	}

	parallel := req.Threads > 1
	newRequest := func(u string) *model.DownloadRequest {
		return &model.DownloadRequest{
			URL:      u,
			Dir:      dir,
			Unzip:    req.Unzip,
			Delete:   req.Delete,
			External: req.External,
			Retry:    req.Retry,
			MinBytes: 1,
			Progress: !parallel,
		}
	}

	var succeeded atomic.Int64
	if parallel {
		var eg errgroup.Group
		eg.SetLimit(req.Threads)
		for _, u := range req.URLs {
			eg.Go(func() error {
				if uc.SafeDownload(ctx, newRequest(u)).Success {
					succeeded.Add(1)
				}
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for _, u := range req.URLs {
			if uc.SafeDownload(ctx, newRequest(u)).Success {
				succeeded.Add(1)
			}
		}
	}

	logger.Info("Batch download finished",
		"dir", dir,
		"total", len(req.URLs),
		"succeeded", succeeded.Load(),
		"threads", req.Threads,
	)
	return nil
}

// IsURL reports whether candidate has a scheme and a host. With verify, the URL must also
// answer a GET with 200.
func (uc *fetchUseCase) IsURL(ctx context.Context, candidate string, verify bool) bool {
	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	if !verify {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return false
	}

	resp, err := uc.probeClient.Do(req)
	if err != nil {
		ctxlog.From(ctx).Debug("URL probe failed", "url", candidate, "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (uc *fetchUseCase) localPath(name string) string {
	if uc.workDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(uc.workDir, name)
}

// removePartial deletes a failed download. Only regular files and symlinks are removed.
func removePartial(ctx context.Context, f string) {
	st, err := os.Lstat(f)
	if err != nil || st.IsDir() {
		return
	}
	if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
		ctxlog.From(ctx).Warn("Failed to remove partial download", "path", f, "error", err)
	}
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func fileSize(path string) (int64, bool) {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return 0, false
	}
	return st.Size(), true
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http:/") || strings.HasPrefix(s, "https:/")
}

// normalizeURL restores "scheme://" when a path cleaner collapsed it to "scheme:/"
func normalizeURL(s string) string {
	for _, scheme := range []string{"http:", "https:"} {
		if strings.HasPrefix(s, scheme+"/") && !strings.HasPrefix(s, scheme+"//") {
			return scheme + "//" + strings.TrimPrefix(s, scheme+"/")
		}
	}
	return s
}

// urlFileName returns the decoded last path element of a URL without its query string
func urlFileName(src string) string {
	if u, err := url.Parse(src); err == nil {
		return path.Base(u.Path)
	}
	name, _, _ := strings.Cut(path.Base(unescape(src)), "?")
	return name
}

func unescape(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}
