package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const maxInboundMessageSize = 64 * 1024 // custom stylesheets ride the config event

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for OBS browser source
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}
	conn.SetReadLimit(maxInboundMessageSize)

	sessionID := uuid.New()

	// The registry evaluates the snapshot inside its actor, so the session
	// gets it ahead of any broadcast and never starts from a stale document.
	s.registry.Register(sessionID, conn, s.router.ConfigSnapshot)

	ctx := c.Request().Context()
	slog.InfoContext(ctx, "WebSocket session opened", "session_id", sessionID.String())

	// Read pump - blocks until the connection closes.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.router.HandleMessage(sessionID, raw)
	}

	s.registry.Unregister(sessionID)
	slog.InfoContext(ctx, "WebSocket session closed", "session_id", sessionID.String())

	return nil
}
