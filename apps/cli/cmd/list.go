package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
)

func newListCmd(fs afero.Fs) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file|directory>...",
		Short: "List testplans in execution order",
		Long: `List testplans in the order a run would execute them.

Examples:
  tstit list examples/customer
  tstit list ./plans/ ./smoke.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			plans, err := plan.NewLoader(fs).Load(args...)
			if err != nil {
				return loadError(err)
			}

			out := c.OutOrStdout()
			for i, p := range plans {
				fmt.Fprintf(out, "%3d. %-6s %s\n", i+1, p.In.Method, p.In.URL)
				fmt.Fprintf(out, "     %s\n", p.DisplayName())
				if p.Name != "" {
					fmt.Fprintf(out, "     file: %s\n", p.Path)
				}
				if len(p.Out.Assign) > 0 {
					for _, a := range p.Out.Assign {
						fmt.Fprintf(out, "     assigns $%s from %s\n", a.Variable, displayPath(a.Path))
					}
				}
			}
			return nil
		},
	}
}

func displayPath(path string) string {
	if path == "" {
		return "the whole body"
	}
	return path
}
