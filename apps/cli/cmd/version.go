package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(c *cobra.Command, _ []string) {
			fmt.Fprintf(c.OutOrStdout(), "tstit version %s\n", version)
			fmt.Fprintf(c.OutOrStdout(), "Built: %s\n", buildTime)
		},
	}
}
