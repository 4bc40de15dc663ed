// Package api provides the HTTP REST API and WebSocket server for
// Skylight Core.
//
// It exposes one route per lamp operation plus a status surface backed
// by the engine's cached snapshots. Commands go through the per-lamp
// session queue, so HTTP callers get the same ordering and at-most-one
// in-flight guarantees as every other surface.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Routes
//
// All routes live under /api/v1. Lamp routes are keyed by the
// configured lamp id:
//
//	GET    /lamps                       configured lamps and cache freshness
//	GET    /lamps/{id}/status           cached snapshot (?force=true polls first)
//	POST   /lamps/{id}/channel          one PWM channel
//	POST   /lamps/{id}/channels         all four channels
//	PUT    /lamps/{id}/schedule         replace stored schedule
//	...
//
// WebSocket clients connect on the configured path (default /ws) and
// subscribe to the "lamp.status_updated" channel for push updates on
// every cache refresh.
//
// # Error responses
//
// Errors are structured JSON with a status, machine-readable code and
// message. Engine errors map onto HTTP status codes: validation and
// codec failures are 400, unknown lamps 404, closed sessions 409,
// firmware rejections 502 and unreachable or timed-out lamps 504.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
