// Package server wires the HTTP surface: health and observability endpoints,
// the read-only settings endpoint, static asset serving for overlays, and the
// WebSocket endpoint that carries both command traffic and event pushes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/api"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/broadcast"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/config"
	apperrors "github.com/jonz94/youtube-live-chat-alerts-app/internal/errors"
	"github.com/jonz94/youtube-live-chat-alerts-app/internal/settings"
)

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	store      *settings.Store
	assets     *settings.Assets
	hub        *broadcast.Hub
	dispatcher *api.Dispatcher
	startTime  time.Time
}

func NewServer(
	cfg *config.Config,
	store *settings.Store,
	assets *settings.Assets,
	hub *broadcast.Hub,
	dispatcher *api.Dispatcher,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	// OBS browser sources and the control panel load from file:// and
	// app-scheme origins, so the API must answer any origin.
	e.Use(middleware.CORS())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:       e,
		config:     cfg,
		store:      store,
		assets:     assets,
		hub:        hub,
		dispatcher: dispatcher,
		startTime:  time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
