package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const maxTitleWidth = 60

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Show the title and available formats of a media link",
	Long: `Resolve a media link and list the formats it can be downloaded in.

Examples:
  mediahub info "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  mediahub info --json "https://vm.tiktok.com/ZMabc123/"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(cmd.Context(), args[0])
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(ctx context.Context, url string) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var info *media.MediaInfo
	if infoJSON || !isTerminal() {
		info, err = a.Resolver.Resolve(ctx, url)
	} else {
		info, err = runResolveWithSpinner(ctx, a.Resolver, url)
	}
	if err != nil {
		return userError(err)
	}

	if infoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Print(renderInfo(info, url))
	return nil
}

func renderInfo(info *media.MediaInfo, url string) string {
	var b strings.Builder

	title := runewidth.Truncate(info.Title, maxTitleWidth, "…")
	fmt.Fprintf(&b, "\n  %s %s\n", resolveDoneStyle.Render("✓"), resolveInfoStyle.Render(title))
	fmt.Fprintf(&b, "  Platform:  %s\n", info.Platform.DisplayName())
	if info.Thumbnail != "" {
		fmt.Fprintf(&b, "  Thumbnail: %s\n", info.Thumbnail)
	}
	b.WriteString("\n")

	if info.ImageOnly {
		b.WriteString("  Image only, downloads as the original file\n\n")
		return b.String()
	}

	if f, ok := info.Format(media.KindVideo); ok {
		fmt.Fprintf(&b, "  Video (mp4): %s\n", strings.Join(f.Resolutions, ", "))
	}
	if f, ok := info.Format(media.KindAudio); ok {
		fmt.Fprintf(&b, "  Audio (mp3): %s\n", strings.Join(f.Bitrates, ", "))
	}
	b.WriteString("\n")

	hint := fmt.Sprintf("Download with: mediahub get %q -f mp4 -q <quality>", url)
	fmt.Fprintf(&b, "  %s\n\n", resolveHintStyle.Render(hint))
	return b.String()
}
