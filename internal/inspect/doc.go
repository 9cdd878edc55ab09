// Package inspect serves a read-only HTTP view of a running frame loop.
//
// Routes:
//
//	GET /healthz        liveness and frame count
//	GET /frames/latest  most recent binding.FrameStats as JSON
//	GET /metrics        Prometheus exposition
//	GET /ws/frames      websocket stream of FrameStats, one JSON message per frame
//
// The frame loop hands snapshots to Publish; the server never touches the
// binding tree.
package inspect
