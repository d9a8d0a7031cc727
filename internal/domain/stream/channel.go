package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/engine"
)

// Close codes on the wire, carried over from the original protocol.
const (
	CloseSuperseded    = 4000
	CloseSessionClosed = 4001
	CloseNotFound      = 4004
)

// Reason records why a binding ended.
type Reason string

const (
	ReasonSuperseded         Reason = "superseded"
	ReasonSessionClosed      Reason = "session_closed"
	ReasonSessionCrashed     Reason = "session_crashed"
	ReasonClientDisconnected Reason = "client_disconnected"
)

// Conn is the write half of a websocket. The reader loop stays with the
// transport handler; everything here goes through the writer goroutine.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type closeRequest struct {
	code     int
	reason   Reason
	terminal []byte
}

// Binding ties one websocket to one session. The mailbox holds at most one
// frame: a newer frame replaces an undelivered older one, so a slow client
// loses frames instead of stalling capture.
type Binding struct {
	SessionID string
	ConnID    string

	hub  *Hub
	conn Conn

	mail    chan *frame.Frame
	control chan []byte
	closing chan closeRequest

	lastSent uint64
	inputSeq atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// NextInputSeq stamps an inbound event with its receipt order.
func (b *Binding) NextInputSeq() uint64 {
	return b.inputSeq.Add(1)
}

// SendError queues a per-event error without breaking the channel.
func (b *Binding) SendError(code, message string) {
	b.send(encodeError(code, message))
}

// SendNavigation queues a navigation update after a nav-affecting event.
func (b *Binding) SendNavigation(nav engine.NavState) {
	data, err := encodeNavigation(nav)
	if err != nil {
		return
	}
	b.send(data)
}

// Disconnected tears the binding down after the client side went away.
func (b *Binding) Disconnected() {
	b.requestClose(0, ReasonClientDisconnected, nil)
}

// Done closes when the binding has fully released.
func (b *Binding) Done() <-chan struct{} {
	return b.done
}

// Context is cancelled when the binding releases. Reader loops derive
// per-event contexts from it so in-flight input stops with the channel.
func (b *Binding) Context() context.Context {
	return b.ctx
}

func (b *Binding) send(data []byte) {
	select {
	case b.control <- data:
	case <-b.ctx.Done():
	}
}

// offer places a frame in the mailbox, evicting an undelivered older one.
func (b *Binding) offer(f *frame.Frame) {
	select {
	case b.mail <- f:
		return
	default:
	}

	select {
	case <-b.mail:
		b.hub.metrics.IncFramesDropped()
	default:
	}

	select {
	case b.mail <- f:
	default:
	}
}

// requestClose starts teardown exactly once. A zero code skips the close
// handshake (the peer is already gone).
func (b *Binding) requestClose(code int, reason Reason, terminal []byte) {
	b.once.Do(func() {
		b.closing <- closeRequest{code: code, reason: reason, terminal: terminal}
	})
}

// writer owns the socket. It interleaves frames and control messages,
// enforces the write deadline and runs the close handshake.
func (b *Binding) writer() {
	defer close(b.done)

	for {
		select {
		case req := <-b.closing:
			b.finish(req)
			return

		case data := <-b.control:
			if !b.write(data) {
				b.abort()
				return
			}
			b.hub.metrics.RecordChannelMessage("out", "control")

		case f := <-b.mail:
			if f.Version <= b.lastSent {
				continue
			}
			data, err := encodeFrame(f)
			if err != nil {
				continue
			}
			if !b.write(data) {
				b.abort()
				return
			}
			b.lastSent = f.Version
			b.hub.metrics.RecordChannelMessage("out", "frame")
		}
	}
}

func (b *Binding) write(data []byte) bool {
	b.conn.SetWriteDeadline(time.Now().Add(b.hub.cfg.WriteTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, data) == nil
}

// finish completes an orderly close: optional terminal error, close frame,
// then release.
func (b *Binding) finish(req closeRequest) {
	if req.terminal != nil {
		b.write(req.terminal)
	}
	if req.code != 0 {
		deadline := time.Now().Add(b.hub.cfg.WriteTimeout)
		b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(req.code, string(req.reason)), deadline)
	}
	b.conn.Close()
	b.release(req.reason)
}

// abort releases after a failed write; the peer is unreachable so no
// handshake is attempted.
func (b *Binding) abort() {
	b.once.Do(func() {})
	// Drain a pending close request so a racing requestClose cannot block.
	select {
	case <-b.closing:
	default:
	}
	b.conn.Close()
	b.release(ReasonClientDisconnected)
}

func (b *Binding) release(reason Reason) {
	b.cancel()
	b.hub.detach(b, reason)
}
