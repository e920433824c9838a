package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stregea/LiveChatOverlay/internal/platform/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness has no external backends to probe - the relay holds all
// state in process - so readiness reports the session count alongside ok.
func (s *Server) handleReadiness(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"status":        "ready",
		"open_sessions": s.registry.Count(),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
