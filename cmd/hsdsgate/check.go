package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/hsdsgate/adapters/clock"
	"github.com/artpar/hsdsgate/adapters/idgen"
	"github.com/artpar/hsdsgate/app"
	"github.com/artpar/hsdsgate/core/schema"
	"github.com/artpar/hsdsgate/core/validation"
)

var checkStrict bool

// errInvalid is returned when the record fails validation. The violations
// are already printed.
var errInvalid = errors.New("record is invalid")

var checkCmd = &cobra.Command{
	Use:   "check <type> <file>",
	Short: "Validate a JSON record without publishing it",
	Long: `Decode and validate one JSON record file against the catalog, exactly
as the gateway would, and print every violation. A missing id is filled
the same way the gateway fills it. Nothing is published.

Examples:
  hsdsgate check organization org.json
  hsdsgate check phone phone.json --strict`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "enable strict reference rules")
}

func runCheck(cmd *cobra.Command, args []string) error {
	typeName, path := args[0], args[1]
	out := cmd.OutOrStdout()
	catalog := schema.HSDS()

	if _, ok := catalog.Lookup(typeName); !ok {
		return fmt.Errorf("Unknown table: %s", typeName)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ingest := app.NewIngestService(app.IngestDeps{
		Catalog:   catalog,
		Validator: validation.New(catalog, validation.WithStrict(checkStrict)),
		IDGen:     idgen.NewTimestamped("auto_", clock.Real{}),
		Logger:    zerolog.Nop(),
	})

	rec, err := ingest.Check(app.Submission{Type: typeName, Body: body})
	var invalid *app.ValidationError
	switch {
	case errors.As(err, &invalid):
		for _, v := range invalid.Outcome {
			fmt.Fprintf(out, "  %s %s\n", crossMark, v)
		}
		return fmt.Errorf("%w: %d violation(s)", errInvalid, len(invalid.Outcome))
	case err != nil:
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(out, "%s %s is valid (id %s)\n", checkMark, typeName, rec.ID())
	return nil
}
