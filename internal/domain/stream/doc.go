// Package stream runs the per-session streaming channel: one websocket per
// session carrying frames out and input events in.
//
// Delivery rules:
//   - Exactly one binding per session; a second bind evicts the first with
//     close code 4000 (superseded).
//   - Frames flow through a single-slot mailbox. A newer frame replaces an
//     undelivered older one, so a slow client drops frames but never stalls
//     capture, its own session's or anyone else's.
//   - A writer goroutine owns the socket; readers stay with the transport
//     handler and feed the input router.
//   - Session close or crash sends a terminal error message and closes with
//     code 4001. Client disconnects release the binding but leave the
//     session running for a later rebind.
//
// The capture pump runs only while a binding exists, publishing every frame
// to the session's frame buffer so versions keep increasing across rebinds.
package stream
