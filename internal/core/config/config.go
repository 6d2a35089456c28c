package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "mediahub"
)

// ConfigDir returns the standard config directory for mediahub.
// Windows: %APPDATA%\mediahub\
// macOS/Linux: ~/.config/mediahub/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/mediahub/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// Server configuration for `mediahub serve` and mediahub-server
	Server ServerConfig `yaml:"server,omitempty" toml:"server"`

	// Upstream resolver providers (RapidAPI-style hosts sharing one key)
	Providers ProvidersConfig `yaml:"providers,omitempty" toml:"providers"`

	// Generic extraction tooling
	Extractor ExtractorConfig `yaml:"extractor,omitempty" toml:"extractor"`

	// Premium event sink
	Stats StatsConfig `yaml:"stats,omitempty" toml:"stats"`

	Log LogConfig `yaml:"log,omitempty" toml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	// Port is the HTTP listen port (default: 5000)
	Port int `yaml:"port,omitempty" toml:"port"`

	// MaxConcurrentStreams caps simultaneous extractor-backed downloads (default: 8)
	MaxConcurrentStreams int `yaml:"max_concurrent_streams,omitempty" toml:"max_concurrent_streams"`

	// Per client IP request rate (default: 5 rps, burst 10). Zero RPS disables limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty" toml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst,omitempty" toml:"rate_limit_burst"`

	ReadTimeoutSeconds int `yaml:"read_timeout_seconds,omitempty" toml:"read_timeout_seconds"`

	// APIKey, when set, is required in X-API-Key for the transfer routes
	APIKey string `yaml:"api_key,omitempty" toml:"api_key"`
}

// ProvidersConfig holds upstream provider endpoints and credentials.
// A provider whose host or key is empty is treated as not configured.
type ProvidersConfig struct {
	RapidAPIKey string `yaml:"rapidapi_key,omitempty" toml:"rapidapi_key"`

	// TimeoutSeconds bounds a single provider call (default: 15)
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds"`

	// Scheme used to reach provider hosts (default: https)
	Scheme string `yaml:"scheme,omitempty" toml:"scheme"`

	YouTubeHost   string `yaml:"youtube_host,omitempty" toml:"youtube_host"`
	TikTokHost    string `yaml:"tiktok_host,omitempty" toml:"tiktok_host"`
	PinterestHost string `yaml:"pinterest_host,omitempty" toml:"pinterest_host"`
	SpotifyHost   string `yaml:"spotify_host,omitempty" toml:"spotify_host"`
	TeraboxHost   string `yaml:"terabox_host,omitempty" toml:"terabox_host"`

	// GeneralHost serves instagram, facebook, twitter and dailymotion
	GeneralHost string `yaml:"general_host,omitempty" toml:"general_host"`
}

// Host returns the configured host for a provider name, "" if unknown.
func (p ProvidersConfig) Host(name string) string {
	switch name {
	case "youtube":
		return p.YouTubeHost
	case "tiktok":
		return p.TikTokHost
	case "pinterest":
		return p.PinterestHost
	case "spotify":
		return p.SpotifyHost
	case "terabox":
		return p.TeraboxHost
	case "general":
		return p.GeneralHost
	}
	return ""
}

// ExtractorConfig holds settings for yt-dlp and ffmpeg
type ExtractorConfig struct {
	YtDlpPath  string `yaml:"ytdlp_path,omitempty" toml:"ytdlp_path"`
	FFmpegPath string `yaml:"ffmpeg_path,omitempty" toml:"ffmpeg_path"`

	// ProbeTimeoutSeconds bounds a metadata probe (default: 60)
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds,omitempty" toml:"probe_timeout_seconds"`

	// FirstByteTimeoutSeconds bounds the wait for a stream's first byte (default: 60)
	FirstByteTimeoutSeconds int `yaml:"first_byte_timeout_seconds,omitempty" toml:"first_byte_timeout_seconds"`

	UserAgent string `yaml:"user_agent,omitempty" toml:"user_agent"`

	// ResolveShortURLs expands pin.it, vm.tiktok.com and similar before classification
	ResolveShortURLs *bool `yaml:"resolve_short_urls,omitempty" toml:"resolve_short_urls"`

	// EnrichMetadata fills a missing title or thumbnail from the page's OpenGraph tags
	EnrichMetadata *bool `yaml:"enrich_metadata,omitempty" toml:"enrich_metadata"`
}

// ShortURLsEnabled reports whether short URL expansion is on (default: true)
func (e ExtractorConfig) ShortURLsEnabled() bool {
	return e.ResolveShortURLs == nil || *e.ResolveShortURLs
}

// EnrichEnabled reports whether OpenGraph enrichment is on (default: true)
func (e ExtractorConfig) EnrichEnabled() bool {
	return e.EnrichMetadata == nil || *e.EnrichMetadata
}

// StatsConfig selects the premium event sink backend
type StatsConfig struct {
	// Backend is one of "memory", "sqlite", "redis" (default: memory)
	Backend string `yaml:"backend,omitempty" toml:"backend"`

	SQLitePath string `yaml:"sqlite_path,omitempty" toml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr,omitempty" toml:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" toml:"redis_password"`
	RedisDB       int    `yaml:"redis_db,omitempty" toml:"redis_db"`
}

type LogConfig struct {
	// Level is a zerolog level name (default: info)
	Level string `yaml:"level,omitempty" toml:"level"`

	// Format is "console" or "json" (default: console)
	Format string `yaml:"format,omitempty" toml:"format"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                 5000,
			MaxConcurrentStreams: 8,
			RateLimitRPS:         5,
			RateLimitBurst:       10,
			ReadTimeoutSeconds:   30,
		},
		Providers: ProvidersConfig{
			TimeoutSeconds: 15,
			Scheme:         "https",
		},
		Extractor: ExtractorConfig{
			YtDlpPath:               "yt-dlp",
			FFmpegPath:              "ffmpeg",
			ProbeTimeoutSeconds:     60,
			FirstByteTimeoutSeconds: 60,
		},
		Stats: StatsConfig{
			Backend:    "memory",
			SQLitePath: "~/.config/mediahub/stats.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.MaxConcurrentStreams <= 0 {
		c.Server.MaxConcurrentStreams = def.Server.MaxConcurrentStreams
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = def.Server.RateLimitBurst
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = def.Server.ReadTimeoutSeconds
	}
	if c.Providers.TimeoutSeconds <= 0 {
		c.Providers.TimeoutSeconds = def.Providers.TimeoutSeconds
	}
	if c.Providers.Scheme == "" {
		c.Providers.Scheme = def.Providers.Scheme
	}
	if c.Extractor.YtDlpPath == "" {
		c.Extractor.YtDlpPath = def.Extractor.YtDlpPath
	}
	if c.Extractor.FFmpegPath == "" {
		c.Extractor.FFmpegPath = def.Extractor.FFmpegPath
	}
	if c.Extractor.ProbeTimeoutSeconds <= 0 {
		c.Extractor.ProbeTimeoutSeconds = def.Extractor.ProbeTimeoutSeconds
	}
	if c.Extractor.FirstByteTimeoutSeconds <= 0 {
		c.Extractor.FirstByteTimeoutSeconds = def.Extractor.FirstByteTimeoutSeconds
	}
	if c.Stats.Backend == "" {
		c.Stats.Backend = def.Stats.Backend
	}
	if c.Stats.SQLitePath == "" {
		c.Stats.SQLitePath = def.Stats.SQLitePath
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}

	c.Stats.SQLitePath = expandPath(c.Stats.SQLitePath)
	c.Extractor.YtDlpPath = expandPath(c.Extractor.YtDlpPath)
	c.Extractor.FFmpegPath = expandPath(c.Extractor.FFmpegPath)
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/mediahub/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a YAML or, for a .toml extension, TOML config file.
// Defaults fill anything the file leaves out; environment overrides are not applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes so config files stay portable.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/mediahub/config.yml
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# mediahub configuration file\n# Run 'mediahub config init' to regenerate with defaults\n\n"
	return os.WriteFile(configPath, []byte(header+string(data)), 0600)
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads config if it exists, otherwise returns defaults.
// Environment overrides are applied in both cases.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg
}
