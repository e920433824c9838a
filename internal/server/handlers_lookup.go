package server

import (
	stderrors "errors"

	"github.com/labstack/echo/v4"

	"github.com/stregea/LiveChatOverlay/internal/errors"
	"github.com/stregea/LiveChatOverlay/internal/ingest/youtube"
)

type lookupResponse struct {
	youtube.LiveStream
	Cached bool `json:"cached"`
}

// handleLiveLookup resolves a channel ID to its current live stream. Results
// are cached per channel for the configured TTL so repeated discovery calls
// do not burn search quota.
func (s *Server) handleLiveLookup(c echo.Context) error {
	channelID := c.QueryParam("channel")
	if channelID == "" {
		return errors.ValidationError("channel query parameter is required")
	}

	if s.lookup == nil {
		return errors.ValidationError("YouTube lookup is not configured")
	}

	if stream, ok := s.lookupCache.Get(channelID); ok {
		return c.JSON(200, lookupResponse{LiveStream: stream, Cached: true})
	}

	if !s.limiter.Allow() {
		return errors.RateLimitedError("live lookup rate limit exceeded").
			WithContext("channel", channelID)
	}

	stream, err := s.lookup.LiveStreamByChannel(c.Request().Context(), channelID)
	if stderrors.Is(err, youtube.ErrNoLiveStream) {
		return errors.NotFoundError("channel has no active live stream").
			WithContext("channel", channelID)
	}
	if err != nil {
		return errors.ExternalError("live stream lookup failed", err).
			WithContext("channel", channelID)
	}

	s.lookupCache.Set(channelID, stream)
	return c.JSON(200, lookupResponse{LiveStream: stream})
}

func (s *Server) handleLookupStats(c echo.Context) error {
	return c.JSON(200, s.lookupCache.Stats())
}
