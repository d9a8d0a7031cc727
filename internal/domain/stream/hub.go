package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/domain/session"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

// Sessions is the slice of the session manager the hub drives.
type Sessions interface {
	Capture(ctx context.Context, sessionID string, quality int, source string) (*frame.Frame, error)
	SetBound(sessionID string, bound bool)
}

// Config tunes streaming delivery.
type Config struct {
	FrameRate    int
	Quality      int
	WriteTimeout time.Duration
}

// Hub enforces the one-binding-per-session rule and runs the per-binding
// capture pumps.
type Hub struct {
	cfg      Config
	sessions Sessions
	log      *logging.Logger
	metrics  *monitoring.Metrics

	mu       sync.Mutex
	bindings map[string]*Binding

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(cfg Config, sessions Sessions, log *logging.Logger, metrics *monitoring.Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:      cfg,
		sessions: sessions,
		log:      log,
		metrics:  metrics,
		bindings: make(map[string]*Binding),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Bind attaches a connection to a session, evicting any prior binding with
// a Superseded close. The caller keeps the read loop; the hub owns writes
// and capture.
func (h *Hub) Bind(sessionID string, conn Conn) *Binding {
	b := &Binding{
		SessionID: sessionID,
		ConnID:    uuid.NewString(),
		hub:       h,
		conn:      conn,
		mail:      make(chan *frame.Frame, 1),
		control:   make(chan []byte, 16),
		closing:   make(chan closeRequest, 1),
		done:      make(chan struct{}),
	}
	b.ctx, b.cancel = context.WithCancel(h.ctx)

	h.mu.Lock()
	old := h.bindings[sessionID]
	h.bindings[sessionID] = b
	h.mu.Unlock()

	if old != nil {
		h.metrics.IncChannelEvictions()
		h.log.Info("channel superseded",
			zap.String("session_id", sessionID),
			zap.String("old_conn_id", old.ConnID),
			zap.String("conn_id", b.ConnID),
		)
		old.requestClose(CloseSuperseded, ReasonSuperseded, nil)
	}

	h.sessions.SetBound(sessionID, true)
	h.metrics.IncChannelConnections()

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		b.writer()
	}()
	go func() {
		defer h.wg.Done()
		h.pump(b)
	}()

	h.log.Info("channel bound",
		zap.String("session_id", sessionID),
		zap.String("conn_id", b.ConnID),
	)
	return b
}

// HandleRelease is registered with the session manager: when a session
// leaves the table its binding gets a terminal error then a close frame.
func (h *Hub) HandleRelease(sessionID, _ string, crashed bool) {
	h.mu.Lock()
	b := h.bindings[sessionID]
	h.mu.Unlock()
	if b == nil {
		return
	}

	reason, message := ReasonSessionClosed, "session closed"
	if crashed {
		reason, message = ReasonSessionCrashed, "session crashed"
	}
	b.requestClose(CloseSessionClosed, reason, encodeError(string(reason), message))
}

// Shutdown closes every binding and waits for the pumps and writers.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	open := make([]*Binding, 0, len(h.bindings))
	for _, b := range h.bindings {
		open = append(open, b)
	}
	h.mu.Unlock()

	for _, b := range open {
		b.requestClose(CloseSessionClosed, ReasonSessionClosed, nil)
	}

	h.cancel()
	h.wg.Wait()
}

// Bound reports whether the session currently has a binding.
func (h *Hub) Bound(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bindings[sessionID] != nil
}

// detach removes the binding from the table. A superseding binding may
// already own the slot, in which case the bound flag stays up.
func (h *Hub) detach(b *Binding, reason Reason) {
	h.mu.Lock()
	owner := h.bindings[b.SessionID] == b
	if owner {
		delete(h.bindings, b.SessionID)
	}
	h.mu.Unlock()

	if owner {
		h.sessions.SetBound(b.SessionID, false)
	}
	h.metrics.DecChannelConnections()

	h.log.Info("channel released",
		zap.String("session_id", b.SessionID),
		zap.String("conn_id", b.ConnID),
		zap.String("reason", string(reason)),
	)
}

// pump captures at the configured rate while the binding lives. The first
// frame goes out immediately so a fresh client is never staring at nothing
// for a full tick.
func (h *Hub) pump(b *Binding) {
	if h.cfg.FrameRate <= 0 {
		return
	}

	if !h.captureOnce(b) {
		return
	}

	interval := time.Second / time.Duration(h.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if !h.captureOnce(b) {
				return
			}
		}
	}
}

// captureOnce grabs one frame and offers it to the mailbox. Timeouts keep
// the pump alive on the last good frame; a dead session stops it.
func (h *Hub) captureOnce(b *Binding) bool {
	f, err := h.sessions.Capture(b.ctx, b.SessionID, h.cfg.Quality, session.SourceStream)
	if err != nil {
		switch errs.CodeOf(err) {
		case errs.Timeout:
			return true
		case errs.NotFound, errs.NotReady, errs.Unavailable:
			return false
		default:
			return b.ctx.Err() == nil
		}
	}

	b.offer(f)
	return true
}
