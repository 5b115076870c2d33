// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/api"
	"github.com/sreeshanth-soma/erpScraper/internal/observability"
)

func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the attendance reporting API",
		Long: `Starts the JSON API used by the dashboard: latest attendance, the attendance
goal, and a login endpoint that runs a scrape with the posted credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			comps, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			handlers, err := api.NewHandlers(logger, comps.Store, comps.Runner, cfg.Profile, cfg.Server.ScrapeInterval, cfg.Server.ScrapeBurst)
			if err != nil {
				return fmt.Errorf("failed to create API handlers: %w", err)
			}

			logger.Info("Starting reporting API", zap.String("address", cfg.Server.Addr), zap.String("owner", cfg.Profile.Owner))
			return api.NewServer(cfg.Server, handlers, logger).Run(ctx)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return serveCmd
}
