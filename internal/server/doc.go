// Package server implements the HTTP server using Echo framework.
//
// Routes: the shared WebSocket endpoint (overlay surfaces and operator UI),
// the YouTube live-lookup API fronted by the quota cache, and observability
// (health, metrics, version). Handlers split by concern: handlers_ws.go,
// handlers_lookup.go, handlers_health.go.
package server
