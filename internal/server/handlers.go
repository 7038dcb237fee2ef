package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jonz94/youtube-live-chat-alerts-app/internal/version"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for OBS browser source
	},
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"assets", s.checkAssetsDir},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) checkAssetsDir() error {
	info, err := os.Stat(s.assets.Dir())
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("assets path is not a directory")
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}

func (s *Server) handleSettings(c echo.Context) error {
	return c.JSON(200, s.store.Snapshot())
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.hub.Register(conn); err != nil {
		slog.Warn("rejecting client", "error", err)
		_ = conn.Close()
		return nil
	}

	ctx := c.Request().Context()

	// Read pump — blocks until the connection closes. Every inbound frame is
	// a command; its reply goes back over the hub so command replies and event
	// pushes never interleave mid-frame.
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		reply := s.dispatcher.Dispatch(ctx, message)
		s.hub.Send(conn, reply)
	}

	s.hub.Unregister(conn)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
