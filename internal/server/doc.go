// Package server provides the HTTP server for the pingboard dashboard and API.
//
// This package is internal to pingboard and handles all HTTP concerns:
//
//   - Dashboard serving: the embedded HTML dashboard at "/"
//   - REST API: "/api/status" for the ordered snapshot, "/api/hosts/{address}" for one host
//   - Live updates: Server-Sent Events at "/api/sse" and a WebSocket at "/api/ws"
//   - Health: "/healthz", unhealthy while any monitor is halted
//
// The server only reads the status registry; it never blocks the monitors.
// It supports graceful shutdown via context cancellation, with a 5-second
// timeout for in-flight requests.
//
// Users of the pingboard library should not need to interact with this
// package directly. The server is started by [pingboard.Board.Start].
package server
