package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tstit.

To load completions:

Bash:
  $ source <(tstit completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ tstit completion bash > /etc/bash_completion.d/tstit
  # macOS:
  $ tstit completion bash > $(brew --prefix)/etc/bash_completion.d/tstit

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ tstit completion zsh > "${fpath[1]}/_tstit"

Fish:
  $ tstit completion fish | source

  # To load completions for each session, execute once:
  $ tstit completion fish > ~/.config/fish/completions/tstit.fish

PowerShell:
  PS> tstit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()
			switch args[0] {
			case "bash":
				return c.Root().GenBashCompletion(out)
			case "zsh":
				return c.Root().GenZshCompletion(out)
			case "fish":
				return c.Root().GenFishCompletion(out, true)
			case "powershell":
				return c.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
