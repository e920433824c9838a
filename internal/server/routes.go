package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// The one session endpoint - overlay surfaces and operator UI alike
	s.echo.GET("/ws", s.handleWebSocket)

	// Auto-discovery lookup, fronted by the quota cache
	s.echo.GET("/api/youtube/live", s.handleLiveLookup)
	s.echo.GET("/api/youtube/live/stats", s.handleLookupStats)
}
