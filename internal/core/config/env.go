package config

import (
	"strconv"
	"strings"
)

// ApplyEnv overlays deployment environment variables on top of the file config.
// getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := envInt(getenv, "PORT"); v > 0 {
		c.Server.Port = v
	}

	envStr(getenv, "MEDIAHUB_API_KEY", &c.Server.APIKey)
	envStr(getenv, "RAPIDAPI_KEY", &c.Providers.RapidAPIKey)
	envStr(getenv, "YOUTUBE_API_HOST", &c.Providers.YouTubeHost)
	envStr(getenv, "TIKTOK_API_HOST", &c.Providers.TikTokHost)
	envStr(getenv, "PINTEREST_API_HOST", &c.Providers.PinterestHost)
	envStr(getenv, "SPOTIFY_API_HOST", &c.Providers.SpotifyHost)
	envStr(getenv, "TERABOX_API_HOST", &c.Providers.TeraboxHost)
	envStr(getenv, "GENERAL_API_HOST", &c.Providers.GeneralHost)

	envStr(getenv, "YTDLP_PATH", &c.Extractor.YtDlpPath)
	envStr(getenv, "FFMPEG_PATH", &c.Extractor.FFmpegPath)

	envStr(getenv, "LOG_LEVEL", &c.Log.Level)
	envStr(getenv, "LOG_FORMAT", &c.Log.Format)

	envStr(getenv, "STATS_BACKEND", &c.Stats.Backend)
	envStr(getenv, "STATS_SQLITE_PATH", &c.Stats.SQLitePath)
	envStr(getenv, "REDIS_ADDR", &c.Stats.RedisAddr)
	envStr(getenv, "REDIS_PASSWORD", &c.Stats.RedisPassword)
	c.Stats.SQLitePath = expandPath(c.Stats.SQLitePath)
}

func envStr(getenv func(string) string, key string, dst *string) {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(getenv func(string) string, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(getenv(key)))
	if err != nil {
		return 0
	}
	return v
}
