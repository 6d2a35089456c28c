package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Extractor.YtDlpPath = filepath.Join(t.TempDir(), "missing-yt-dlp")

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Resolver)
	assert.NotNil(t, a.Streamer)
	assert.IsType(t, &stats.Memory{}, a.Stats)

	// No key configured: every specialized provider is out, the fallback stays.
	for _, tag := range platform.All() {
		assert.Empty(t, a.Registry.ResolversFor(tag), tag)
	}
	statuses := a.Registry.Statuses()
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1]
	assert.True(t, last.Configured)
}

func TestBuild_ConfiguredProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers.RapidAPIKey = "key"
	cfg.Providers.TikTokHost = "tiktok.example.com"

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Registry.ResolversFor(platform.TikTok), 1)
	assert.Empty(t, a.Registry.ResolversFor(platform.YouTube))
}

func TestBuild_SQLiteStats(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stats.Backend = "sqlite"
	cfg.Stats.SQLitePath = filepath.Join(t.TempDir(), "stats.db")

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &stats.SQLite{}, a.Stats)
}

func TestBuild_UnknownStatsBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stats.Backend = "postgres"

	_, err := Build(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
