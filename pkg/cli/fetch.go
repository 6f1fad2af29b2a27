package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/m-mizutani/assetfetch/pkg/cli/config"
	"github.com/m-mizutani/assetfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/assetfetch/pkg/domain/types"
	"github.com/m-mizutani/assetfetch/pkg/infra/curl"
	"github.com/m-mizutani/assetfetch/pkg/infra/git"
	"github.com/m-mizutani/assetfetch/pkg/infra/transfer"
	"github.com/m-mizutani/assetfetch/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// newFetch builds the asset fetcher from settings. releases may be nil.
func newFetch(settings *config.Settings, releases interfaces.ReleaseClient) interfaces.FetchUseCase {
	opts := []usecase.FetchOption{
		usecase.WithWeightsDir(settings.WeightsDir),
		usecase.WithDownloadHost(settings.DownloadHost),
		usecase.WithTagSource(git.NewTagSource(settings.Git, settings.GitDir)),
	}
	if releases != nil {
		opts = append(opts, usecase.WithReleaseClient(releases))
	}

	primary := transfer.NewHTTP(transfer.WithUserAgent("assetfetch/" + types.Version))
	return usecase.NewFetch(primary, curl.New(settings.Curl), opts...)
}

func cmdFetch() *cli.Command {
	var (
		settings  config.Settings
		githubCfg config.GitHub
	)

	return &cli.Command{
		Name:      "fetch",
		Aliases:   []string{"f"},
		Usage:     "Resolve file references to local paths, downloading release assets as needed",
		ArgsUsage: "FILE|URL [FILE|URL...]",
		Flags:     append(settings.Flags(), githubCfg.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			files := c.Args().Slice()
			if len(files) == 0 {
				return goerr.New("at least one file reference is required")
			}

			if err := settings.Load(ctx, c.IsSet); err != nil {
				return err
			}

			releases, err := githubCfg.NewClient()
			if err != nil {
				return err
			}

			fetchUC := newFetch(&settings, releases)
			logger.Debug("Resolving assets",
				slog.Any("files", files),
				slog.String("repository", settings.Repository),
				slog.String("release", settings.Release),
				slog.String("weights_dir", settings.WeightsDir),
			)

			for _, file := range files {
				path, err := fetchUC.AttemptDownloadAsset(ctx, file, settings.Repository, settings.Release)
				if err != nil {
					return goerr.Wrap(err, "failed to resolve asset", goerr.V("file", file))
				}
				fmt.Fprintln(c.Root().Writer, color.GreenString(path))
			}
			return nil
		},
	}
}
