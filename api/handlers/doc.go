// Package handlers contains the HTTP handlers of the councilflow API:
// council lifecycle endpoints, the free-text trigger endpoint, and the
// health/readiness probes, plus the shared response envelope and the
// error-code to HTTP-status mapping.
package handlers
