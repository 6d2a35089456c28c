package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/guiyumin/mediahub/internal/stats"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show this month's premium download totals",
	Long: `Show the charity totals for the current month from the configured
stats backend. The memory backend only holds numbers for a running server,
so use sqlite or redis to inspect them from the command line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sink, err := stats.New(cmd.Context(), cfg.Stats)
		if err != nil {
			return err
		}
		defer sink.Close()

		snap, err := sink.Current(cmd.Context())
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		fmt.Printf("%s %d (%s backend)\n", color.New(color.Bold).Sprint(snap.Month), snap.Year, cfg.Stats.Backend)
		fmt.Printf("  Premium downloads: %s\n", humanize.Comma(snap.PremiumDownloads))
		fmt.Printf("  Total raised:      %s\n", color.GreenString(humanize.Comma(snap.TotalRaised)))
		if !snap.UpdatedAt.IsZero() {
			fmt.Printf("  Last event:        %s\n", humanize.Time(snap.UpdatedAt))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statsCmd)
}
