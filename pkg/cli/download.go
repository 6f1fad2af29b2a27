package cli

import (
	"context"

	"github.com/m-mizutani/assetfetch/pkg/cli/config"
	"github.com/m-mizutani/assetfetch/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdDownload() *cli.Command {
	var (
		settings config.Settings
		dir      string
		unzip    bool
		remove   bool
		external bool
		threads  int
	)

	flags := append(settings.Flags(),
		&cli.StringFlag{
			Name:        "dir",
			Aliases:     []string{"d"},
			Usage:       "Destination directory",
			Value:       ".",
			Destination: &dir,
		},
		&cli.BoolFlag{
			Name:        "unzip",
			Usage:       "Extract .zip, .tar and .gz archives after download",
			Value:       true,
			Destination: &unzip,
		},
		&cli.BoolFlag{
			Name:        "delete",
			Usage:       "Remove archives after extraction",
			Destination: &remove,
		},
		&cli.BoolFlag{
			Name:        "external",
			Usage:       "Use the external download command for every attempt",
			Destination: &external,
		},
		&cli.IntFlag{
			Name:        "threads",
			Aliases:     []string{"t"},
			Usage:       "Number of parallel downloads",
			Value:       1,
			Destination: &threads,
		},
	)

	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"d"},
		Usage:     "Download URLs into a directory",
		ArgsUsage: "URL [URL...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			urls := c.Args().Slice()
			if len(urls) == 0 {
				return goerr.New("at least one URL is required")
			}

			if err := settings.Load(ctx, c.IsSet); err != nil {
				return err
			}

			fetchUC := newFetch(&settings, nil)
			return fetchUC.Download(ctx, &model.BatchRequest{
				URLs:     urls,
				Dir:      dir,
				Unzip:    unzip,
				Delete:   remove,
				External: external,
				Threads:  threads,
				Retry:    settings.Retry,
			})
		},
	}
}
