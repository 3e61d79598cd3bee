package commands

import (
	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for graphmap.

Bash:

  $ source <(graphmap completion bash)

Zsh:

  $ graphmap completion zsh > "${fpath[1]}/_graphmap"

Fish:

  $ graphmap completion fish | source

PowerShell:

  PS> graphmap completion powershell | Out-String | Invoke-Expression

Entity type names for --type are completed from the schema of the
configured project.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := cmd.Root()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeTypes completes entity type names from the project schema
func completeTypes(global *globalOptions) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		s, err := openSession(global)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return s.registry.List(), cobra.ShellCompDirectiveNoFileComp
	}
}
