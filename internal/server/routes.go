package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/healthz", s.handleLiveness)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Read-only settings snapshot for overlay bootstrapping
	s.echo.GET("/api/settings", s.handleSettings)

	// Command + push channel
	s.echo.GET("/ws", s.handleWebSocket)

	// Managed tier assets (image gifs and sound effects)
	s.echo.Static("/assets", s.assets.Dir())

	// Built overlay bundles, when configured
	if s.config.OverlaysDir != "" {
		s.echo.Static("/overlays", s.config.OverlaysDir)
	}
}
