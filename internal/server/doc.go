// Package server provides the HTTP surface of the exporter.
//
// Endpoints:
//   - /         landing page with connection status and cached record counts
//   - /metrics  Prometheus metrics (promhttp)
//   - /health   liveness probe, always 200
//   - /ready    readiness probe, 503 until the first successful refresh
//
// The server applies conservative read/write/idle timeouts and supports
// graceful shutdown via Shutdown.
package server
