package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
)

func newValidateCmd(fs afero.Fs) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|directory>...",
		Short: "Validate testplans without executing them",
		Long: `Load and check testplans without sending any request.

Examples:
  tstit validate examples/customer/10_create.toml
  tstit validate ./plans/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return validateCommand(c, fs, args)
		},
	}
}

func validateCommand(c *cobra.Command, fs afero.Fs, args []string) error {
	loader := plan.NewLoader(fs)
	files, err := loader.Discover(args...)
	if err != nil {
		return loadError(err)
	}

	hasErrors := false
	for _, file := range files {
		if _, err := loader.LoadFile(file); err != nil {
			fmt.Fprintf(c.ErrOrStderr(), "Error in %v\n", err)
			hasErrors = true
		} else {
			fmt.Fprintf(c.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return loadError(errors.New("validation failed"))
	}
	return nil
}
