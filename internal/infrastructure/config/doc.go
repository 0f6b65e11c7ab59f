// Package config provides 12-factor configuration management for the keyx
// render service.
//
// Configuration is loaded from environment variables with defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, allowed origins)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Render: Visibility gate, decrypt timeout, pending request TTL
//   - Sanitizer: Sanitization policy and optional allow-list file
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - RENDER_GATE, DECRYPT_TIMEOUT, PENDING_TTL, RENDER_QUEUE_SIZE
//   - SANITIZER_POLICY, SANITIZER_ALLOWLIST
package config
