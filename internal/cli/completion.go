package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// newCompletionCmd creates the completion command for generating shell
// completion scripts.
func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for cratebuild.

To load completions:

Bash:
  $ source <(cratebuild completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ cratebuild completion bash > /etc/bash_completion.d/cratebuild
  # macOS:
  $ cratebuild completion bash > $(brew --prefix)/etc/bash_completion.d/cratebuild

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ cratebuild completion zsh > "${fpath[1]}/_cratebuild"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ cratebuild completion fish | source

  # To load completions for each session, execute once:
  $ cratebuild completion fish > ~/.config/fish/completions/cratebuild.fish

PowerShell:
  PS> cratebuild completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> cratebuild completion powershell > cratebuild.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
