package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tlsid "github.com/artpar/hsdsgate/adapters/tls"
	"github.com/artpar/hsdsgate/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration before deployment",
	Long: `Validate the hsdsgate configuration file.

Checks:
  - YAML syntax is valid
  - Values are within range (port, domain id, heartbeat interval, ...)
  - With security enabled, the identity certificate loads and its
    common name matches gateway.source_id

Examples:
  hsdsgate validate-config
  hsdsgate validate-config --config /etc/community/publisher.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	fmt.Fprintf(out, "  %s Source id: %s\n", checkMark, cfg.Gateway.SourceID)
	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())
	fmt.Fprintf(out, "  %s Distribution: %s (domain %d, codec %s)\n",
		checkMark, cfg.Distribution.Driver, cfg.Distribution.DomainID, cfg.Distribution.Codec)
	fmt.Fprintf(out, "  %s Strict validation: %v\n", checkMark, cfg.Gateway.StrictValidation)

	if cfg.Security.Enabled {
		if _, err := tlsid.LoadIdentity(cfg.Security, cfg.Gateway.SourceID); err != nil {
			fmt.Fprintf(out, "  %s Identity\n", crossMark)
			return fmt.Errorf("identity error: %w", err)
		}
		fmt.Fprintf(out, "  %s Identity\n", checkMark)
	}

	fmt.Fprintln(out, "\nConfiguration is valid.")
	return nil
}
