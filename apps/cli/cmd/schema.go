package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the testplan format",
		Long: `Print the JSON Schema describing testplan files, for editor
integration (for example with Even Better TOML or taplo).`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			data, err := plan.SchemaJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), string(data))
			return nil
		},
	}
}
