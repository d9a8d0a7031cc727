// Package session owns browser session lifecycle and the session table.
//
// A session pairs one isolated browser instance with its bookkeeping:
// navigable state, activity clock and streaming-channel binding. The
// Manager is the only holder of the table; every other layer addresses
// sessions by id.
//
// Lifecycle:
//
//	Creating -> Active -> Closing -> Closed
//	               \-> Crashed -> Closed
//
// Creating placeholders reserve the id but stay invisible to lookups, so a
// caller never sees a session without an engine instance behind it. Closed
// ids leave the table entirely; later lookups report not found.
//
// Concurrency:
//   - The table is a sync.Map: distinct sessions proceed fully in parallel.
//   - Every engine call runs under the session's executor mutex, so capture
//     and input are serialized per session in arrival order.
//   - A background sweeper reclaims sessions idle past the threshold unless
//     a streaming channel is bound.
//
// Example Usage:
//
//	manager := session.NewManager(cfg, eng, frames, launchArgs, log, metrics)
//	desc, err := manager.Create(ctx)
//	state, err := manager.Navigate(ctx, desc.SessionID, "https://example.com")
//	err = manager.Close(ctx, desc.SessionID)
package session
