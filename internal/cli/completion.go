package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for mediahub.

Bash:
  # Add to ~/.bashrc:
  source <(mediahub completion bash)

  # Or install to system:
  mediahub completion bash > /etc/bash_completion.d/mediahub

Zsh:
  # Add to ~/.zshrc:
  source <(mediahub completion zsh)

  # Or install to fpath:
  mediahub completion zsh > "${fpath[1]}/_mediahub"

Fish:
  mediahub completion fish > ~/.config/fish/completions/mediahub.fish

PowerShell:
  mediahub completion powershell >> $PROFILE
`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return cmd.Help()
		}
	},
}

var qualityCompletions = []string{"2160p", "1440p", "1080p", "720p", "480p", "360p", "320kbps", "256kbps", "128kbps"}

func init() {
	rootCmd.AddCommand(completionCmd)

	// URLs are never local files
	rootCmd.ValidArgsFunction = noFileCompletion
	infoCmd.ValidArgsFunction = noFileCompletion
	getCmd.ValidArgsFunction = noFileCompletion

	configGetCmd.ValidArgsFunction = completeConfigKeys
	configSetCmd.ValidArgsFunction = completeConfigKeys
	configUnsetCmd.ValidArgsFunction = completeConfigKeys
}

func noFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeConfigKeys completes the first argument of config get/set/unset
func completeConfigKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return configKeys(), cobra.ShellCompDirectiveNoFileComp
}

func configKeys() []string {
	keys := []string{
		"server.port",
		"server.max_concurrent_streams",
		"server.rate_limit_rps",
		"server.rate_limit_burst",
		"server.api_key",
		"providers.rapidapi_key",
		"providers.timeout_seconds",
	}
	for _, name := range providerNames {
		keys = append(keys, "providers."+name+"_host")
	}
	return append(keys,
		"extractor.ytdlp_path",
		"extractor.ffmpeg_path",
		"stats.backend",
		"stats.sqlite_path",
		"stats.redis_addr",
		"log.level",
		"log.format",
	)
}
