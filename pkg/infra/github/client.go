package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/assetfetch/pkg/domain/model"
	"github.com/m-mizutani/assetfetch/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type config struct {
	token          string
	appID          int64
	installationID int64
	privateKey     []byte
	baseURL        string
	httpClient     *http.Client
}

// Option configures the release metadata client
type Option func(*config)

// WithToken authenticates requests with a personal access token
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithApp authenticates requests as a GitHub App installation
func WithApp(appID, installationID int64, privateKey []byte) Option {
	return func(c *config) {
		c.appID = appID
		c.installationID = installationID
		c.privateKey = privateKey
	}
}

// WithBaseURL sets the REST API endpoint, e.g. for GitHub Enterprise
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// Client looks up release metadata through the GitHub REST API
type Client struct {
	githubClient *github.Client
}

// NewClient creates a new GitHub client. Without credentials requests are anonymous.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if cfg.appID != 0 {
		base := http.DefaultTransport
		if httpClient != nil && httpClient.Transport != nil {
			base = httpClient.Transport
		}

		itr, err := ghinstallation.New(base, cfg.appID, cfg.installationID, cfg.privateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub App transport",
				goerr.V("app_id", cfg.appID),
				goerr.V("installation_id", cfg.installationID))
		}
		httpClient = &http.Client{Transport: itr}
	}

	githubClient := github.NewClient(httpClient)
	if cfg.token != "" && cfg.appID == 0 {
		githubClient = githubClient.WithAuthToken(cfg.token)
	}
	githubClient.UserAgent = "assetfetch/" + types.Version

	if cfg.baseURL != "" {
		u, err := url.Parse(cfg.baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API base URL", goerr.V("base_url", cfg.baseURL))
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		githubClient.BaseURL = u
	}

	return &Client{
		githubClient: githubClient,
	}, nil
}

// GetRelease returns the tag and asset names of a release
func (c *Client) GetRelease(ctx context.Context, repo model.Repository, tag string) (*model.Release, error) {
	var (
		release *github.RepositoryRelease
		err     error
	)

	if tag == "" || tag == types.LatestRelease {
		release, _, err = c.githubClient.Repositories.GetLatestRelease(ctx, repo.Owner, repo.Name)
	} else {
		release, _, err = c.githubClient.Repositories.GetReleaseByTag(ctx, repo.Owner, repo.Name, tag)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get release",
			goerr.V("repository", repo.String()),
			goerr.V("tag", tag))
	}

	result := &model.Release{
		Tag: release.GetTagName(),
	}
	for _, asset := range release.Assets {
		result.Assets = append(result.Assets, asset.GetName())
	}

	return result, nil
}
