// Package app wires configuration into the resolution and delivery pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/delivery"
	"github.com/guiyumin/mediahub/internal/core/enrich"
	"github.com/guiyumin/mediahub/internal/core/httpclient"
	"github.com/guiyumin/mediahub/internal/core/logging"
	"github.com/guiyumin/mediahub/internal/core/provider"
	"github.com/guiyumin/mediahub/internal/core/resolver"
	"github.com/guiyumin/mediahub/internal/core/ytdlp"
	"github.com/guiyumin/mediahub/internal/stats"
	"github.com/rs/zerolog"
)

// App holds the long-lived pipeline components.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Registry  *provider.Registry
	Extractor *ytdlp.Extractor
	Resolver  *resolver.Resolver
	Streamer  *delivery.Streamer
	Stats     stats.Sink
}

// Build constructs the pipeline from cfg. The stats sink is opened here, so
// Close must be called when done.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	providerTimeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
	client := httpclient.New(providerTimeout)

	extractor := ytdlp.New(cfg.Extractor, log)
	if !extractor.Available() {
		log.Warn().Str("path", cfg.Extractor.YtDlpPath).Msg("yt-dlp not found, fallback resolution and streaming will fail")
	}

	key := cfg.Providers.RapidAPIKey
	creds := func(ref string) string {
		if ref == provider.CredentialRapidAPI {
			return key
		}
		return ""
	}
	registry := provider.NewRegistry(provider.Catalogue(cfg.Providers), creds, client, extractor)

	opts := []resolver.Option{resolver.WithProviderTimeout(providerTimeout)}
	if cfg.Extractor.ShortURLsEnabled() {
		opts = append(opts, resolver.WithShortURLExpander(
			provider.NewShortURLExpander(client, provider.DefaultShortHosts, log)))
	}
	if cfg.Extractor.EnrichEnabled() {
		opts = append(opts, resolver.WithEnricher(enrich.NewOpenGraph(client)))
	}
	res := resolver.New(registry, log, opts...)

	sink, err := stats.New(ctx, cfg.Stats)
	if err != nil {
		return nil, fmt.Errorf("opening stats backend: %w", err)
	}

	for _, st := range registry.Statuses() {
		log.Debug().Str("provider", st.Name).Bool("configured", st.Configured).Msg("provider registered")
	}

	streamer := delivery.NewStreamer(res, delivery.FromYtDlp(extractor), sink, log,
		delivery.WithFirstByteTimeout(time.Duration(cfg.Extractor.FirstByteTimeoutSeconds)*time.Second))

	return &App{
		Config:    cfg,
		Log:       log,
		Registry:  registry,
		Extractor: extractor,
		Resolver:  res,
		Streamer:  streamer,
		Stats:     sink,
	}, nil
}

// NewLogger builds the process logger from cfg.Log.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

func (a *App) Close() error {
	return a.Stats.Close()
}
