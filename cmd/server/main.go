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

	"github.com/jonboulle/clockwork"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/api"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/broadcast"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/config"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/ecpay"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/logging"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/queue"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/server"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/version"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/youtube"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(
	srv *server.Server,
	presenter *queue.Presenter,
	hub *broadcast.Hub,
	chat *youtube.Service,
	donations *ecpay.Service,
) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		chat.Stop()
		if err := donations.Disconnect(shutdownCtx); err != nil {
			slog.Error("Failed to disconnect donation hub", "error", err)
		}
		presenter.Stop()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "build", version.Get().String())

	hub := broadcast.NewHub(clock)

	store := settings.NewStore(cfg.SettingsDir, hub)
	if err := store.Load(); err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	assets := settings.NewAssets(cfg.SettingsDir, cfg.DefaultImagePath, cfg.DefaultSoundPath)
	if err := assets.EnsureDefaults(); err != nil {
		slog.Error("Failed to seed tier assets", "error", err)
		os.Exit(1)
	}

	presenter := queue.NewPresenter(hub, clock)

	chat := youtube.NewService(youtube.NewClient(cfg.YoutubeBaseURL, nil), store, presenter, hub, clock)
	donations := ecpay.NewService(ecpay.Config{
		PaymentBaseURL:      cfg.EcpayPaymentBaseURL,
		PaymentStageBaseURL: cfg.EcpayPaymentStageBaseURL,
		SignalRBaseURL:      cfg.EcpaySignalRBaseURL,
		SignalRStageBaseURL: cfg.EcpaySignalRStageBaseURL,
	}, nil, nil, store, hub, clock)

	handlers := api.NewHandlers(store, assets, presenter, hub, hub, chat, donations)
	dispatcher := api.NewDispatcher(handlers)

	srv := server.NewServer(cfg, store, assets, hub, dispatcher)

	done := runGracefulShutdown(srv, presenter, hub, chat, donations)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
