package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/discord"
	"github.com/keshon/jukebox/internal/logger"
	"github.com/keshon/jukebox/internal/metrics"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/internal/storage"
	v "github.com/keshon/jukebox/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	lg, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	log.Logger = lg
	lg.Info().Str("version", v.Version).Str("token", cfg.RedactedToken()).Msgf("Starting %v bot...", v.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.StoragePath)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			lg.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				lg.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	provider, err := youtube.New(ctx, youtube.Options{
		APIKey:          cfg.YouTubeAPIKey,
		MaxPlaylistSize: cfg.MaxPlaylistSize,
		Metrics:         m,
		Logger:          logger.Component(lg, "youtube"),
	})
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to set up YouTube provider")
	}
	if cfg.YouTubeAPIKey == "" {
		lg.Warn().Msg("YOUTUBE_API_KEY is not set, search uses the results page and channel playlists are disabled")
	}

	bot, err := discord.New(discord.Options{
		Config:   cfg,
		Storage:  store,
		Provider: provider,
		Metrics:  m,
		Logger:   lg,
	})
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := bot.Run(ctx); err != nil {
		lg.Error().Err(err).Msg("Discord bot error")
		return
	}
	lg.Info().Msg("Discord bot exited cleanly")
}
