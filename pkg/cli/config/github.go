package config

import (
	"os"

	"github.com/m-mizutani/assetfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/assetfetch/pkg/infra/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub API configuration
type GitHub struct {
	Token          string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKey     string `masq:"secret"`
	PrivateKeyFile string
	APIURL         string
	Offline        bool
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub personal access token for release lookups",
			Destination: &c.Token,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-app-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_APP_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App private key (PEM)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_APP_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key-file",
			Usage:       "Path to GitHub App private key (PEM)",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_APP_PRIVATE_KEY_FILE"),
		},
		&cli.StringFlag{
			Name:        "github-api-url",
			Usage:       "GitHub REST API base URL",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_API_URL"),
		},
		&cli.BoolFlag{
			Name:        "github-offline",
			Usage:       "Do not query the GitHub API, use local and default tags only",
			Destination: &c.Offline,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_OFFLINE"),
		},
	}
}

// NewClient creates a release metadata client. It returns nil when API
// lookups are disabled.
func (c *GitHub) NewClient() (interfaces.ReleaseClient, error) {
	if c.Offline {
		return nil, nil
	}

	var opts []github.Option
	if c.APIURL != "" {
		opts = append(opts, github.WithBaseURL(c.APIURL))
	}

	switch {
	case c.AppID != 0:
		key, err := c.privateKey()
		if err != nil {
			return nil, err
		}
		if c.InstallationID == 0 {
			return nil, goerr.New("github-app-installation-id is required with github-app-id",
				goerr.V("app_id", c.AppID))
		}
		opts = append(opts, github.WithApp(c.AppID, c.InstallationID, key))

	case c.Token != "":
		opts = append(opts, github.WithToken(c.Token))
	}

	client, err := github.NewClient(opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub client")
	}
	return client, nil
}

func (c *GitHub) privateKey() ([]byte, error) {
	if c.PrivateKey != "" {
		return []byte(c.PrivateKey), nil
	}
	if c.PrivateKeyFile == "" {
		return nil, goerr.New("GitHub App private key is required", goerr.V("app_id", c.AppID))
	}

	key, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read GitHub App private key", goerr.V("path", c.PrivateKeyFile))
	}
	return key, nil
}

// Webhook holds webhook receiver configuration
type Webhook struct {
	Secret        string `masq:"secret"`
	Repositories  []string
	AssetPatterns []string
	Threads       int
}

// Flags returns CLI flags for webhook configuration
func (c *Webhook) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.Secret,
			Sources:     cli.EnvVars("ASSETFETCH_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.StringSliceFlag{
			Name:        "mirror-repository",
			Usage:       "Repository (owner/name) whose releases are mirrored; repeatable, empty allows all",
			Destination: &c.Repositories,
			Sources:     cli.EnvVars("ASSETFETCH_MIRROR_REPOSITORY"),
		},
		&cli.StringSliceFlag{
			Name:        "mirror-asset",
			Usage:       "Glob pattern of asset names to mirror; repeatable, empty allows all",
			Destination: &c.AssetPatterns,
			Sources:     cli.EnvVars("ASSETFETCH_MIRROR_ASSET"),
		},
		&cli.IntFlag{
			Name:        "mirror-threads",
			Usage:       "Parallel downloads per mirrored release",
			Value:       1,
			Destination: &c.Threads,
			Sources:     cli.EnvVars("ASSETFETCH_MIRROR_THREADS"),
		},
	}
}
