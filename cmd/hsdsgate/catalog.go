package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/hsdsgate/core/schema"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [type]",
	Short: "List record types and their fields",
	Long: `List the HSDS record types the gateway accepts, with their topics.
Given a type, list its fields and constraints.

Examples:
  hsdsgate catalog
  hsdsgate catalog organization`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	catalog := schema.HSDS()

	if len(args) == 0 {
		for _, name := range catalog.Types() {
			rt, _ := catalog.Get(name)
			fmt.Fprintf(out, "%-28s %s\n", name, rt.Topic)
		}
		return nil
	}

	rt, ok := catalog.Get(args[0])
	if !ok {
		return fmt.Errorf("Unknown table: %s", args[0])
	}
	fmt.Fprintf(out, "%s (topic %s)\n", rt.Name, rt.Topic)
	for _, f := range rt.Fields {
		fmt.Fprintf(out, "  %s\n", f)
	}
	return nil
}
