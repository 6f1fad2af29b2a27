package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/assetfetch/pkg/cli/config"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdCheck() *cli.Command {
	var (
		settings config.Settings
		verify   bool
	)

	flags := append(settings.Flags(),
		&cli.BoolFlag{
			Name:        "verify",
			Usage:       "Probe that the URL exists online",
			Value:       true,
			Destination: &verify,
		},
	)

	return &cli.Command{
		Name:      "check",
		Usage:     "Check whether arguments are URLs, optionally reachable ones",
		ArgsUsage: "CANDIDATE [CANDIDATE...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			candidates := c.Args().Slice()
			if len(candidates) == 0 {
				return goerr.New("at least one candidate is required")
			}

			if err := settings.Load(ctx, c.IsSet); err != nil {
				return err
			}
			fetchUC := newFetch(&settings, nil)

			w := c.Root().Writer
			for _, candidate := range candidates {
				if fetchUC.IsURL(ctx, candidate, verify) {
					fmt.Fprintf(w, "%s %s\n", color.GreenString("ok"), candidate)
				} else {
					fmt.Fprintf(w, "%s %s\n", color.RedString("ng"), candidate)
				}
			}
			return nil
		},
	}
}
