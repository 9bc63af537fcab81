// Package server exposes live channel readings over HTTP.
//
// This package is internal to pwmreceiver and backs the simulate command:
//
//   - REST API: JSON snapshot of the latest reading per channel at "/api/readings"
//   - Server-Sent Events: every new reading as it is dispatched at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
