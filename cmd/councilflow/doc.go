// Command councilflow runs the council rating service: it wires the
// engine, the configured store backend, the HTTP API, and the metrics
// server, and handles graceful shutdown.
package main
