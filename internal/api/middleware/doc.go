// Package middleware holds the gin middleware of the render service.
//
//   - CORS: origins from CORS_ORIGINS, GET/POST only
//   - RateLimit: per-IP token buckets with idle eviction
//   - GlobalRateLimit: one bucket for the whole service
//
// Example:
//
//	router.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.Server.CORSOrigins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
