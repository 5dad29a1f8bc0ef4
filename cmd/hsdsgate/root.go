package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/hsdsgate/config"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hsdsgate",
	Short: "HSDS publishing gateway",
	Long: `hsdsgate accepts HSDS records over an authenticated HTTP API,
validates them against the HSDS catalog and publishes them, stamped with
this gateway's source id, to one topic per record type.

Quick start:
  hsdsgate validate-config   # Check the configuration
  hsdsgate serve             # Start the gateway

Offline tools:
  hsdsgate catalog           # List record types and fields
  hsdsgate check <type> <f>  # Validate a JSON record file`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
}
