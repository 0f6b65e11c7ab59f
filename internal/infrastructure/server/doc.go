// Package server wires the render service together.
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Build the sanitizer policy and the AEAD
//  4. Setup HTTP routes and middleware
//  5. Serve until Shutdown
//
// Responses are gzip-compressed except on /ws, which must stay hijackable for
// the WebSocket upgrade.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
