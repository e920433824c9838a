package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/stregea/LiveChatOverlay/internal/cache"
	"github.com/stregea/LiveChatOverlay/internal/errors"
	"github.com/stregea/LiveChatOverlay/internal/ingest/youtube"
	"github.com/stregea/LiveChatOverlay/internal/platform/config"
	"github.com/stregea/LiveChatOverlay/internal/registry"
	"github.com/stregea/LiveChatOverlay/internal/router"
)

// liveLookup resolves a channel to its current live stream. Nil when YouTube
// credentials are not configured.
type liveLookup interface {
	LiveStreamByChannel(ctx context.Context, channelID string) (youtube.LiveStream, error)
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	registry    *registry.Registry
	router      *router.Router
	lookup      liveLookup
	lookupCache *cache.QuotaCache[youtube.LiveStream]
	limiter     *rate.Limiter
	startTime   time.Time
}

func NewServer(cfg *config.Config, reg *registry.Registry, rt *router.Router, lookup liveLookup, lookupCache *cache.QuotaCache[youtube.LiveStream]) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(correlationMiddleware)
	e.Use(errors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		registry:    reg,
		router:      rt,
		lookup:      lookup,
		lookupCache: lookupCache,
		limiter:     rate.NewLimiter(rate.Limit(cfg.LookupRateLimit), 1),
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
