package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/guiyumin/mediahub/internal/core/version"
	"github.com/guiyumin/mediahub/internal/updater"
	"github.com/spf13/cobra"
)

var updateCheck bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update mediahub to the latest release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if updateCheck {
			latest, newer, err := updater.CheckUpdate(cmd.Context())
			if err != nil {
				return err
			}
			if !newer {
				fmt.Printf("Already up to date (%s)\n", displayVersion())
				return nil
			}
			fmt.Printf("New version available: %s (current %s)\n", color.GreenString(latest.Version()), displayVersion())
			fmt.Println("Run 'mediahub update' to install it")
			return nil
		}

		fmt.Println("Checking for updates...")
		installed, err := updater.Update(cmd.Context())
		if err != nil {
			return err
		}
		if installed == "" {
			fmt.Printf("Already up to date (%s)\n", displayVersion())
			return nil
		}
		fmt.Printf("%s Updated to v%s\n", color.GreenString("✓"), installed)
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "only check whether a newer release exists")
	rootCmd.AddCommand(updateCmd)
}

func displayVersion() string {
	return "v" + strings.TrimPrefix(version.Version, "v")
}
