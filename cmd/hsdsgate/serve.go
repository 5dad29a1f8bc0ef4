package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/hsdsgate/bootstrap"
	"github.com/artpar/hsdsgate/config"
)

var serveSourceID string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the hsdsgate HTTP server.

The server will:
  - Load configuration from community_publisher_config.yaml (or --config)
  - Or load configuration from HSDSGATE_* environment variables
  - Open one publishing channel per HSDS record type
  - Accept records on POST /api/v1/hsds/{type} and PUT /api/v1/hsds/{type}/{id}

Any startup failure (bad config, unreachable distribution layer, identity
mismatch, port in use) exits with status 1.

Environment variables (for container deployments):
  HSDSGATE_AUTH_TOKEN       - Bearer token (required without a config file)
  HSDSGATE_SOURCE_ID        - Gateway identity
  HSDSGATE_DRIVER           - nats, sqlite or memory
  HSDSGATE_NATS_URL         - NATS server URL
  HSDSGATE_LOG_LEVEL        - DEBUG, INFO, WARN, ERROR, FATAL

Examples:
  hsdsgate serve
  hsdsgate serve --config /etc/community/publisher.yaml
  hsdsgate serve -d food-bank-gw-1`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveSourceID, "source-id", "d", "", "override gateway.source_id")
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err != nil && !config.HasEnvConfig() {
		return fmt.Errorf("no configuration found: create %s or set HSDSGATE_AUTH_TOKEN", cfgFile)
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, bootstrap.Options{
		ConfigPath: cfgFile,
		SourceID:   serveSourceID,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run(ctx)
}
