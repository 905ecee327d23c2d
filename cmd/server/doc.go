// Package main is the entry point for the pagelens browser service.
//
// The service exposes a remotely controllable headless browser:
// clients create isolated sessions, drive navigation and input over
// REST, and watch the live viewport over a WebSocket stream.
//
// Architecture:
//
//	Client (REST / WebSocket) → Go Service → Headless Chromium (CDP)
//
// The server provides:
//   - Session lifecycle (create, status, close)
//   - Page control (navigate, back/forward, refresh, input)
//   - JPEG screenshot capture and a 10fps live stream
//   - Search suggestion proxy with offline fallback
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - Defaults for development
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
