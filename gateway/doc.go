// Package gateway exposes a runner over HTTP. A run is started with
// POST /v1/runs and streamed back as server-sent events, one SSE event per
// StreamItem, filtered by the ?mode= query parameter (deltas-only,
// events-only or both).
package gateway
