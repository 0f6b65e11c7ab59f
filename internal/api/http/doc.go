// Package http provides the HTTP handlers of the render service.
//
// Endpoints:
//   - GET  /             service banner
//   - GET  /health       liveness plus counters
//   - GET  /metrics      Prometheus exposition
//   - GET  /metrics/json counter snapshot
//   - POST /render       render every content iframe of a page
//
// POST /render takes {"markup": "...", "key": "..."}. Public elements are
// decoded and rendered. With a key, the key is saved in a fresh key holder and
// private elements are decrypted there. The response carries the rewritten
// markup and one status per element.
//
// Example Usage:
//
//	handlers := http.NewHandlers(deps, metrics, registry, logger)
//	router.POST("/render", handlers.Render)
package http
