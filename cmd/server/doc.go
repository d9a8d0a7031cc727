// Package main is the entry point for the Glasswing server.
//
// The server drives headless Chromium sessions and exposes them to remote
// clients:
//
//	Client (UI) → REST → session lifecycle, navigation, input, extensions
//	            → WS   → frame stream out, input events in
//
// The server provides:
//   - REST API for session lifecycle, navigation and input
//   - WebSocket streaming of page frames
//   - Chrome extension catalog (load, pack, toggle)
//   - LLM-backed search suggestions
//   - Rate limiting and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML override file (GLASSWING_CONFIG)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Default bind (0.0.0.0:8000)
//	./server
//
//	# Custom bind
//	./server -port 9000 -host 127.0.0.1
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
