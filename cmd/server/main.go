package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/stregea/LiveChatOverlay/internal/cache"
	"github.com/stregea/LiveChatOverlay/internal/domain"
	"github.com/stregea/LiveChatOverlay/internal/ingest"
	"github.com/stregea/LiveChatOverlay/internal/ingest/twitch"
	"github.com/stregea/LiveChatOverlay/internal/ingest/youtube"
	"github.com/stregea/LiveChatOverlay/internal/platform/config"
	"github.com/stregea/LiveChatOverlay/internal/platform/logging"
	"github.com/stregea/LiveChatOverlay/internal/registry"
	"github.com/stregea/LiveChatOverlay/internal/router"
	"github.com/stregea/LiveChatOverlay/internal/server"
	"github.com/stregea/LiveChatOverlay/internal/state"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupYouTube(cfg *config.Config) *youtube.Client {
	if !cfg.HasYouTubeCredentials() {
		slog.Info("YouTube credentials not set, lookup and ingest disabled")
		return nil
	}

	client, err := youtube.NewClient(context.Background(), cfg.YouTubeAPIKey)
	if err != nil {
		slog.Error("Failed to create YouTube client", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(cfg *config.Config, srv *server.Server, sup *ingest.Supervisor, reg *registry.Registry) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		sup.Stop()
		reg.CloseAll(websocket.CloseGoingAway, "Server shutting down")

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	store := state.New(cfg.HasYouTubeCredentials(), cfg.HasTwitchCredentials())
	reg := registry.New(clock)
	rt := router.New(store, reg)

	lookupCache := cache.New[youtube.LiveStream](cfg.LookupCacheTTL, clock)
	stopEviction := lookupCache.StartEvictionTimer(1 * time.Minute)
	defer stopEviction()

	// Platform ingest feeds the router through its own session, so chat from
	// the platforms takes the same path as chat from any connected client.
	ingestSessionID := uuid.New()
	sup := ingest.New(func(raw []byte) { rt.HandleMessage(ingestSessionID, raw) })
	sup.SetRunner(domain.PlatformTwitch, twitch.NewListener(cfg.TwitchBotUsername, cfg.TwitchOAuthToken, sup.Forward))

	ytClient := setupYouTube(cfg)
	if ytClient != nil {
		sup.SetRunner(domain.PlatformYouTube, youtube.NewPoller(ytClient, sup.Forward))
	}
	rt.OnConfigChange(sup.Apply)

	// Pass nil explicitly to avoid a typed-nil interface.
	var srv *server.Server
	if ytClient != nil {
		srv = server.NewServer(cfg, reg, rt, ytClient, lookupCache)
	} else {
		srv = server.NewServer(cfg, reg, rt, nil, lookupCache)
	}

	done := runGracefulShutdown(cfg, srv, sup, reg)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
