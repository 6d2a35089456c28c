package cli

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mediahub configuration",
	Long:  "View and modify mediahub settings, including provider hosts and the RapidAPI key",
}

// mediahub config show - show current config
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		if configFile != "" {
			path = configFile
		}

		fmt.Println("Current configuration:")
		fmt.Printf("  Config:   %s\n", path)

		fmt.Println("\nServer:")
		fmt.Printf("  port:                   %d\n", cfg.Server.Port)
		fmt.Printf("  max_concurrent_streams: %d\n", cfg.Server.MaxConcurrentStreams)
		fmt.Printf("  rate_limit:             %.1f rps, burst %d\n", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		fmt.Printf("  api_key:                %s\n", maskSecret(cfg.Server.APIKey))

		fmt.Println("\nProviders:")
		fmt.Printf("  rapidapi_key: %s\n", maskSecret(cfg.Providers.RapidAPIKey))
		for _, name := range providerNames {
			fmt.Printf("  %-12s %s\n", name+":", orDefault(cfg.Providers.Host(name), color.YellowString("(not set)")))
		}

		fmt.Println("\nExtractor:")
		fmt.Printf("  ytdlp_path:  %s\n", cfg.Extractor.YtDlpPath)
		fmt.Printf("  ffmpeg_path: %s\n", cfg.Extractor.FFmpegPath)

		fmt.Println("\nStats:")
		fmt.Printf("  backend: %s\n", cfg.Stats.Backend)
		switch cfg.Stats.Backend {
		case "sqlite":
			fmt.Printf("  path:    %s\n", cfg.Stats.SQLitePath)
		case "redis":
			fmt.Printf("  addr:    %s\n", cfg.Stats.RedisAddr)
		}

		fmt.Println("\nLog:")
		fmt.Printf("  level:  %s\n", cfg.Log.Level)
		fmt.Printf("  format: %s\n", cfg.Log.Format)
		return nil
	},
}

// mediahub config path - show config file path
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

// mediahub config init - write defaults
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config.yml with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		fmt.Printf("%s Created %s\n", color.GreenString("✓"), path)
		fmt.Println("Set your provider key with: mediahub config set providers.rapidapi_key")
		return nil
	},
}

const supportedKeys = `Supported keys:
  server.port                    Server listen port
  server.max_concurrent_streams  Max simultaneous extractor streams
  server.rate_limit_rps          Requests per second per client IP (0 disables)
  server.rate_limit_burst        Rate limit burst
  server.api_key                 API key for the transfer routes
  providers.rapidapi_key         RapidAPI key shared by all providers
  providers.timeout_seconds      Per provider call timeout
  providers.<name>_host          Host for youtube, tiktok, pinterest, spotify, terabox, general
  extractor.ytdlp_path           yt-dlp binary
  extractor.ffmpeg_path          ffmpeg binary
  stats.backend                  memory, sqlite or redis
  stats.sqlite_path              SQLite database file
  stats.redis_addr               Redis address (host:port)
  log.level                      debug, info, warn, error
  log.format                     console or json`

// mediahub config set KEY VALUE - set a config value
var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value in config.yml.

` + supportedKeys + `

Secret keys prompt for the value when it is omitted.

Examples:
  mediahub config set server.port 8080
  mediahub config set providers.rapidapi_key
  mediahub config set providers.youtube_host youtube-mp36.p.rapidapi.com`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			if !secretKeys[key] {
				return fmt.Errorf("missing value for %s", key)
			}
			fmt.Printf("%s: ", key)
			b, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}
			value = strings.TrimSpace(string(b))
		}

		cfg := config.LoadOrDefault()
		if err := setConfigValue(cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		shown := value
		if secretKeys[key] {
			shown = maskSecret(value)
		}
		fmt.Printf("Set %s = %s\n", key, shown)
		return nil
	},
}

// mediahub config get KEY - get a config value
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value from config.yml.

Examples:
  mediahub config get server.port
  mediahub config get stats.backend`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := getConfigValue(config.LoadOrDefault(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

// mediahub config unset KEY - unset/clear a config value
var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Unset a configuration value",
	Long: `Unset (clear) a configuration value in config.yml.
Numeric settings fall back to their defaults on the next load.

` + supportedKeys,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		cfg := config.LoadOrDefault()
		if err := unsetConfigValue(cfg, key); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Unset %s\n", key)
		return nil
	},
}

var providerNames = []string{"youtube", "tiktok", "pinterest", "spotify", "terabox", "general"}

var secretKeys = map[string]bool{
	"server.api_key":         true,
	"providers.rapidapi_key": true,
}

// providerHost returns the host field behind a providers.<name>_host key.
func providerHost(cfg *config.Config, key string) (*string, bool) {
	name, ok := strings.CutPrefix(key, "providers.")
	if !ok {
		return nil, false
	}
	name, ok = strings.CutSuffix(name, "_host")
	if !ok {
		return nil, false
	}
	switch name {
	case "youtube":
		return &cfg.Providers.YouTubeHost, true
	case "tiktok":
		return &cfg.Providers.TikTokHost, true
	case "pinterest":
		return &cfg.Providers.PinterestHost, true
	case "spotify":
		return &cfg.Providers.SpotifyHost, true
	case "terabox":
		return &cfg.Providers.TeraboxHost, true
	case "general":
		return &cfg.Providers.GeneralHost, true
	}
	return nil, false
}

// stringField returns the string setting behind key.
func stringField(cfg *config.Config, key string) (*string, bool) {
	switch key {
	case "server.api_key":
		return &cfg.Server.APIKey, true
	case "providers.rapidapi_key":
		return &cfg.Providers.RapidAPIKey, true
	case "extractor.ytdlp_path":
		return &cfg.Extractor.YtDlpPath, true
	case "extractor.ffmpeg_path":
		return &cfg.Extractor.FFmpegPath, true
	case "stats.sqlite_path":
		return &cfg.Stats.SQLitePath, true
	case "stats.redis_addr":
		return &cfg.Stats.RedisAddr, true
	case "log.format":
		return &cfg.Log.Format, true
	}
	return providerHost(cfg, key)
}

// intField returns the integer setting behind key.
func intField(cfg *config.Config, key string) (*int, bool) {
	switch key {
	case "server.port":
		return &cfg.Server.Port, true
	case "server.max_concurrent_streams":
		return &cfg.Server.MaxConcurrentStreams, true
	case "server.rate_limit_burst":
		return &cfg.Server.RateLimitBurst, true
	case "providers.timeout_seconds":
		return &cfg.Providers.TimeoutSeconds, true
	}
	return nil, false
}

func unknownKey(key, action string) error {
	return fmt.Errorf("unknown config key: %s\nRun 'mediahub config %s --help' to see supported keys", key, action)
}

// setConfigValue sets a config value by key
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "server.rate_limit_rps":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps < 0 {
			return fmt.Errorf("invalid rate: %s", value)
		}
		cfg.Server.RateLimitRPS = rps
		return nil
	case "stats.backend":
		switch value {
		case "memory", "sqlite", "redis":
			cfg.Stats.Backend = value
			return nil
		}
		return fmt.Errorf("invalid stats backend %q (memory, sqlite, redis)", value)
	case "log.level":
		switch value {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = value
			return nil
		}
		return fmt.Errorf("invalid log level %q (debug, info, warn, error)", value)
	}

	if p, ok := intField(cfg, key); ok {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid number: %s", value)
		}
		if key == "server.port" && (n == 0 || n > 65535) {
			return fmt.Errorf("invalid port number: %s", value)
		}
		*p = n
		return nil
	}
	if p, ok := stringField(cfg, key); ok {
		*p = value
		return nil
	}
	return unknownKey(key, "set")
}

// getConfigValue gets a config value by key
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "server.rate_limit_rps":
		return strconv.FormatFloat(cfg.Server.RateLimitRPS, 'f', -1, 64), nil
	case "stats.backend":
		return cfg.Stats.Backend, nil
	case "log.level":
		return cfg.Log.Level, nil
	}
	if p, ok := intField(cfg, key); ok {
		return strconv.Itoa(*p), nil
	}
	if p, ok := stringField(cfg, key); ok {
		return *p, nil
	}
	return "", unknownKey(key, "get")
}

// unsetConfigValue clears a config value by key
func unsetConfigValue(cfg *config.Config, key string) error {
	switch key {
	case "server.rate_limit_rps":
		cfg.Server.RateLimitRPS = 0
		return nil
	case "stats.backend":
		cfg.Stats.Backend = ""
		return nil
	case "log.level":
		cfg.Log.Level = ""
		return nil
	}
	if p, ok := intField(cfg, key); ok {
		*p = 0
		return nil
	}
	if p, ok := stringField(cfg, key); ok {
		*p = ""
		return nil
	}
	return unknownKey(key, "unset")
}

// maskSecret shows only the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return color.YellowString("(not set)")
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configUnsetCmd)

	rootCmd.AddCommand(configCmd)
}
