// Package server provides HTTP server setup and initialization for
// the browser service.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, recovery, metrics)
//   - Browser engine handle (lazy Chromium launch)
//   - Session store and control dispatcher
//   - Live stream handler (WebSocket)
//   - Search suggestion provider
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Build the engine handle without launching the browser
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal (close sessions, stop engine)
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
