// Package main is the entry point for the keyx render service.
//
// The service decrypts and sanitizes content element payloads and writes
// them into iframe documents. Keys are held in memguard enclaves inside
// per-session key holders and never written anywhere.
//
// Endpoints:
//
//	GET  /health, /metrics, /metrics/json
//	POST /render
//	GET  /ws
//
// Configuration:
//   - Environment variables (PORT, RENDER_GATE, DECRYPT_TIMEOUT, ...)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -gate public-only -policy ugc
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
