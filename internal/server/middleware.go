package server

import (
	"github.com/labstack/echo/v4"

	"github.com/stregea/LiveChatOverlay/internal/platform/correlation"
)

// correlationMiddleware attaches a fresh correlation ID to every request
// context, so context-aware log lines from the same request share an ID.
// Websocket sessions inherit it for the lifetime of the read pump.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
