package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/assetfetch/pkg/domain/types"
	"github.com/m-mizutani/assetfetch/pkg/infra/curl"
	"github.com/m-mizutani/assetfetch/pkg/infra/git"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Settings holds fetcher configuration. Values come from flags and env, and
// from an optional TOML file for anything not set explicitly.
type Settings struct {
	Path         string
	WeightsDir   string
	Repository   string
	Release      string
	Retry        int
	Curl         string
	Git          string
	GitDir       string
	DownloadHost string
}

// settingsFile is the on-disk layout of the settings file
type settingsFile struct {
	WeightsDir   string `toml:"weights_dir"`
	Repository   string `toml:"repository"`
	Release      string `toml:"release"`
	Retry        *int   `toml:"retry"`
	Curl         string `toml:"curl"`
	Git          string `toml:"git"`
	GitDir       string `toml:"git_dir"`
	DownloadHost string `toml:"download_host"`
}

// Flags returns CLI flags for fetcher configuration
func (c *Settings) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML settings file",
			Destination: &c.Path,
			Sources:     cli.EnvVars("ASSETFETCH_CONFIG"),
		},
		&cli.StringFlag{
			Name:        "weights-dir",
			Usage:       "Directory of cached model weights (default: user cache dir)",
			Destination: &c.WeightsDir,
			Sources:     cli.EnvVars("ASSETFETCH_WEIGHTS_DIR"),
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Default asset repository (owner/name)",
			Value:       types.DefaultRepository,
			Destination: &c.Repository,
			Sources:     cli.EnvVars("ASSETFETCH_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "release",
			Usage:       "Default release tag",
			Value:       types.DefaultRelease,
			Destination: &c.Release,
			Sources:     cli.EnvVars("ASSETFETCH_RELEASE"),
		},
		&cli.IntFlag{
			Name:        "retry",
			Usage:       "Retries after the first failed download attempt",
			Value:       types.DefaultRetry,
			Destination: &c.Retry,
			Sources:     cli.EnvVars("ASSETFETCH_RETRY"),
		},
		&cli.StringFlag{
			Name:        "curl",
			Usage:       "Path to curl command",
			Value:       curl.DefaultCommand,
			Destination: &c.Curl,
			Sources:     cli.EnvVars("ASSETFETCH_CURL"),
		},
		&cli.StringFlag{
			Name:        "git",
			Usage:       "Path to git command",
			Value:       git.DefaultCommand,
			Destination: &c.Git,
			Sources:     cli.EnvVars("ASSETFETCH_GIT"),
		},
		&cli.StringFlag{
			Name:        "git-dir",
			Usage:       "Working tree used to look up local release tags",
			Value:       ".",
			Destination: &c.GitDir,
			Sources:     cli.EnvVars("ASSETFETCH_GIT_DIR"),
		},
		&cli.StringFlag{
			Name:        "download-host",
			Usage:       "Base URL of release asset downloads",
			Value:       types.DefaultDownloadHost,
			Destination: &c.DownloadHost,
			Sources:     cli.EnvVars("ASSETFETCH_DOWNLOAD_HOST"),
		},
	}
}

// Load reads the settings file, if any, and fills every field whose flag was
// not set explicitly. isSet reports whether a flag was given on the command
// line or through its env source.
func (c *Settings) Load(ctx context.Context, isSet func(name string) bool) error {
	if c.Path != "" {
		raw, err := os.ReadFile(c.Path)
		if err != nil {
			return goerr.Wrap(err, "failed to read settings file", goerr.V("path", c.Path))
		}

		var file settingsFile
		if err := toml.Unmarshal(raw, &file); err != nil {
			return goerr.Wrap(err, "failed to parse settings file", goerr.V("path", c.Path))
		}

		c.merge(&file, isSet)
		ctxlog.From(ctx).Debug("Settings file loaded", slog.String("path", c.Path))
	}

	if c.WeightsDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return goerr.Wrap(err, "failed to resolve user cache directory")
		}
		c.WeightsDir = filepath.Join(cacheDir, "assetfetch", "weights")
	}
	if c.Retry < 0 {
		return goerr.New("retry must not be negative", goerr.V("retry", c.Retry))
	}

	return nil
}

func (c *Settings) merge(file *settingsFile, isSet func(name string) bool) {
	setString := func(name string, dst *string, value string) {
		if value != "" && !isSet(name) {
			*dst = value
		}
	}

	setString("weights-dir", &c.WeightsDir, file.WeightsDir)
	setString("repository", &c.Repository, file.Repository)
	setString("release", &c.Release, file.Release)
	setString("curl", &c.Curl, file.Curl)
	setString("git", &c.Git, file.Git)
	setString("git-dir", &c.GitDir, file.GitDir)
	setString("download-host", &c.DownloadHost, file.DownloadHost)

	if file.Retry != nil && !isSet("retry") {
		c.Retry = *file.Retry
	}
}
