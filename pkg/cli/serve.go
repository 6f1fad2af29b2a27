package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/assetfetch/pkg/cli/config"
	controller "github.com/m-mizutani/assetfetch/pkg/controller/http"
	"github.com/m-mizutani/assetfetch/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		settings   config.Settings
		githubCfg  config.GitHub
		webhookCfg config.Webhook
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, settings.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, webhookCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server mirroring released assets into the weights directory",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := settings.Load(ctx, c.IsSet); err != nil {
				return err
			}

			logger.Info("Starting assetfetch server",
				slog.String("addr", serverCfg.Addr),
				slog.String("weights_dir", settings.WeightsDir),
				slog.Any("repositories", webhookCfg.Repositories),
			)

			releases, err := githubCfg.NewClient()
			if err != nil {
				return err
			}

			// Create use cases
			webhookUC, err := usecase.NewWebhook(
				newFetch(&settings, releases),
				settings.WeightsDir,
				usecase.WithRepositories(webhookCfg.Repositories...),
				usecase.WithAssetPatterns(webhookCfg.AssetPatterns...),
				usecase.WithMirrorThreads(webhookCfg.Threads),
				usecase.WithMirrorRetry(settings.Retry),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create webhook use case")
			}

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(webhookCfg.Secret),
				controller.WithWeightsDir(settings.WeightsDir),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
