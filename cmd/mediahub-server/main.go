package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guiyumin/mediahub/internal/app"
	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/version"
	"github.com/guiyumin/mediahub/internal/server"
)

func main() {
	// Command-line flags
	port := flag.Int("port", 0, "HTTP listen port (default: $PORT or 5000)")
	configPath := flag.String("config", "", "config file (YAML, or TOML with a .toml extension)")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mediahub-server %s\n", version.Version)
		return
	}

	// Load configuration (file > defaults, then environment)
	cfg := config.LoadOrDefault()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mediahub-server: %v\n", err)
			os.Exit(1)
		}
		loaded.ApplyEnv(os.Getenv)
		cfg = loaded
	}

	// Resolve port (flag > env > config > default)
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer a.Close()

	srv := server.NewServer(server.OptionsFromConfig(cfg.Server), server.Deps{
		Resolver:  a.Resolver,
		Streamer:  a.Streamer,
		Stats:     a.Stats,
		Providers: a.Registry.Statuses,
	}, log)

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
