/*
Package monitoring provides Prometheus metrics for the render service.

# Overview

Metrics cover the HTTP surface, WebSocket sessions, and the render
pipeline itself: renders by path and outcome, decrypt latency, key saves,
and requests parked waiting for a key.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewDecryptTimer(metrics, "holder")
	plaintext, err := decrypter.Decrypt(ctx, data, key)
	timer.Stop()

Tests build an isolated collector with NewMetricsWithRegistry so repeated
construction does not collide on the default registry.

# Metric Names

All metrics use the keyx_ prefix:

  - keyx_http_requests_total, keyx_http_request_duration_seconds
  - keyx_ws_connections, keyx_ws_messages_total
  - keyx_renders_total{path,status}
  - keyx_decrypt_duration_seconds{context}
  - keyx_key_saves_total
  - keyx_pending_renders
*/
package monitoring
