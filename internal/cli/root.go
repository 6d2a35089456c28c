package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/guiyumin/mediahub/internal/app"
	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mediahub [url]",
	Short: "Resolve and download media from YouTube, TikTok, Instagram, Spotify and more",
	Long: `mediahub resolves a media link into its available formats and downloads it,
either from a direct provider URL or by streaming through yt-dlp.

Running mediahub with a URL is the same as 'mediahub info <url>'.`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runInfo(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (YAML, or TOML with a .toml extension)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	}
	return err
}

// loadConfig reads --config when given, otherwise the default config file.
// Environment overrides apply in both cases.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.LoadOrDefault(), nil
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func warnMissingConfig() {
	if configFile == "" && !config.Exists() {
		fmt.Fprintln(os.Stderr, color.YellowString("Config file not found, using defaults. Run 'mediahub config init'."))
	}
}

// cliLogger keeps one-shot commands quiet unless --log-level asks otherwise.
func cliLogger(cfg *config.Config) zerolog.Logger {
	cfg.Log.Level = "warn"
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	cfg.Log.Format = "console"
	return app.NewLogger(cfg)
}

// buildApp loads config and wires the pipeline for a one-shot command.
func buildApp(ctx context.Context) (*app.App, error) {
	warnMissingConfig()
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, cliLogger(cfg))
}

// userError turns a pipeline error into what a terminal user should read.
func userError(err error) error {
	if errors.Is(err, context.Canceled) {
		return errors.New("cancelled")
	}
	var e *media.Error
	if errors.As(err, &e) {
		return fmt.Errorf("%s (%s)", e.Message, e.Code)
	}
	return err
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
