package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stregea/LiveChatOverlay/internal/platform/correlation"
)

func TestCorrelationMiddlewareAttachesID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got string
	handler := correlationMiddleware(func(c echo.Context) error {
		id, ok := correlation.ID(c.Request().Context())
		require.True(t, ok, "handler context carries a correlation ID")
		got = id
		return nil
	})

	require.NoError(t, handler(c))
	assert.Len(t, got, 8)
}

func TestCorrelationMiddlewareFreshIDPerRequest(t *testing.T) {
	e := echo.New()

	ids := make([]string, 0, 2)
	handler := correlationMiddleware(func(c echo.Context) error {
		id, _ := correlation.ID(c.Request().Context())
		ids = append(ids, id)
		return nil
	})

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		require.NoError(t, handler(c))
	}

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}
