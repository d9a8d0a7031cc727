package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/id"
)

// Close reasons reported to metrics and release listeners.
const (
	ReasonClient   = "client"
	ReasonIdle     = "idle"
	ReasonCrashed  = "crashed"
	ReasonShutdown = "shutdown"
)

// Config tunes the manager. Engine options apply to every instance.
type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSessions   int
	Engine        engine.Options
}

// ReleaseFunc observes a session leaving the table. Crashed reports whether
// the engine died underneath the session rather than an orderly close.
type ReleaseFunc func(sessionID string, reason string, crashed bool)

// Manager maps session ids to live browser instances.
type Manager struct {
	cfg     Config
	eng     engine.Engine
	frames  *frame.Buffer
	log     *logging.Logger
	metrics *monitoring.Metrics

	// launchArgs supplies extra browser switches per launch, typically the
	// enabled-extension flags. May be nil.
	launchArgs func() []string

	sessions sync.Map
	live     atomic.Int64

	releaseMu sync.Mutex
	onRelease []ReleaseFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wires the manager and starts the idle sweeper.
func NewManager(cfg Config, eng engine.Engine, frames *frame.Buffer, launchArgs func() []string, log *logging.Logger, metrics *monitoring.Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		eng:        eng,
		frames:     frames,
		log:        log,
		metrics:    metrics,
		launchArgs: launchArgs,
		ctx:        ctx,
		cancel:     cancel,
	}

	if cfg.SweepInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}
	return m
}

// OnRelease registers a listener for session removal. Listeners run on the
// releasing goroutine after the instance is down and the frame is dropped.
func (m *Manager) OnRelease(fn ReleaseFunc) {
	m.releaseMu.Lock()
	m.onRelease = append(m.onRelease, fn)
	m.releaseMu.Unlock()
}

// Create reserves an id, launches an instance and activates the session.
// The placeholder stays invisible to lookups until activation, so callers
// never observe a half-initialized session.
func (m *Manager) Create(ctx context.Context) (Descriptor, error) {
	if m.ctx.Err() != nil {
		return Descriptor{}, errs.New(errs.Unavailable, "session manager is shut down")
	}

	if max := int64(m.cfg.MaxSessions); max > 0 && m.live.Add(1) > max {
		m.live.Add(-1)
		return Descriptor{}, errs.Newf(errs.Unavailable, "session limit reached (%d)", m.cfg.MaxSessions)
	}

	now := time.Now().UTC()
	sctx, cancel := context.WithCancel(m.ctx)
	s := &Session{
		id:           id.NewSessionID().String(),
		createdAt:    now,
		state:        StateCreating,
		lastActivity: now,
		ctx:          sctx,
		cancel:       cancel,
	}
	m.sessions.Store(s.id, s)

	opts := m.cfg.Engine
	if m.launchArgs != nil {
		opts.ExtraArgs = append(append([]string(nil), opts.ExtraArgs...), m.launchArgs()...)
	}

	inst, err := m.eng.NewInstance(ctx, opts)
	if err != nil {
		m.sessions.Delete(s.id)
		cancel()
		m.live.Add(-1)
		m.log.Error("session create failed", zap.String("session_id", s.id), zap.Error(err))
		return Descriptor{}, errs.Wrap(errs.Unavailable, "engine unavailable", err)
	}

	s.mu.Lock()
	s.instance = inst
	s.state = StateActive
	s.mu.Unlock()

	sid := s.id
	inst.OnTerminated(func(cause error) {
		m.handleCrash(sid, cause)
	})

	m.metrics.IncSessionsCreated()
	m.metrics.SetSessionsActive(int(m.live.Load()))
	m.log.Info("session created", zap.String("session_id", s.id))

	return s.descriptor(), nil
}

// Get returns the descriptor of a live session.
func (m *Manager) Get(sessionID string) (Descriptor, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return Descriptor{}, err
	}
	return s.descriptor(), nil
}

// List returns descriptors of every active session.
func (m *Manager) List() []Descriptor {
	out := make([]Descriptor, 0)
	m.sessions.Range(func(_, v any) bool {
		s := v.(*Session)
		if s.currentState() == StateActive {
			out = append(out, s.descriptor())
		}
		return true
	})
	return out
}

// Close releases a session. Unknown or already-closed ids close trivially.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil
	}
	s := v.(*Session)

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	inst := s.instance
	s.mu.Unlock()

	m.release(s, inst, ReasonClient, false)
	return nil
}

// SetBound flags whether a streaming channel is attached. Bound sessions
// are exempt from idle reclamation.
func (m *Manager) SetBound(sessionID string, bound bool) {
	if v, ok := m.sessions.Load(sessionID); ok {
		v.(*Session).bound.Store(bound)
	}
}

// Shutdown closes every session and stops the engine.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	m.sessions.Range(func(_, v any) bool {
		s := v.(*Session)
		s.mu.Lock()
		if s.state != StateActive {
			s.mu.Unlock()
			return true
		}
		s.state = StateClosing
		inst := s.instance
		s.mu.Unlock()
		m.release(s, inst, ReasonShutdown, false)
		return true
	})

	m.wg.Wait()
	return m.eng.Close()
}

// handleCrash transitions a session whose engine died underneath it.
func (m *Manager) handleCrash(sessionID string, cause error) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return
	}
	s := v.(*Session)

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateCrashed
	inst := s.instance
	s.mu.Unlock()

	m.metrics.IncSessionCrashes()
	m.log.Warn("session crashed", zap.String("session_id", sessionID), zap.Error(cause))

	m.release(s, inst, ReasonCrashed, true)
}

// release tears a session down: cancels its context, closes the instance
// under the executor, drops the frame cell, notifies listeners and removes
// the id from the table.
func (m *Manager) release(s *Session, inst engine.Instance, reason string, crashed bool) {
	s.cancel()

	if inst != nil {
		s.exec.Lock()
		inst.Close()
		s.exec.Unlock()
	}

	m.frames.Drop(s.id)

	m.releaseMu.Lock()
	listeners := append([]ReleaseFunc(nil), m.onRelease...)
	m.releaseMu.Unlock()
	for _, fn := range listeners {
		fn(s.id, reason, crashed)
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	m.sessions.Delete(s.id)
	m.live.Add(-1)

	m.metrics.RecordSessionClosed(reason)
	m.metrics.SetSessionsActive(int(m.live.Load()))
	m.log.Info("session closed", zap.String("session_id", s.id), zap.String("reason", reason))
}

// lookup resolves an id to an active session. Creating placeholders and
// removed ids are NotFound; closing or crashed sessions are NotReady.
func (m *Manager) lookup(sessionID string) (*Session, error) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, errs.Newf(errs.NotFound, "session %s not found", sessionID)
	}
	s := v.(*Session)

	switch s.currentState() {
	case StateActive:
		return s, nil
	case StateCreating, StateClosed:
		return nil, errs.Newf(errs.NotFound, "session %s not found", sessionID)
	default:
		return nil, errs.Newf(errs.NotReady, "session %s is not ready", sessionID)
	}
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep reclaims sessions idle past the threshold. Sessions with a bound
// channel are never reclaimed regardless of idle time.
func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	var idle []*Session
	m.sessions.Range(func(_, v any) bool {
		s := v.(*Session)
		if s.bound.Load() {
			return true
		}
		if s.currentState() == StateActive && s.idleSince().Before(cutoff) {
			idle = append(idle, s)
		}
		return true
	})

	for _, s := range idle {
		s.mu.Lock()
		if s.state != StateActive || s.bound.Load() {
			s.mu.Unlock()
			continue
		}
		s.state = StateClosing
		inst := s.instance
		s.mu.Unlock()

		m.log.Info("session idle, reclaiming", zap.String("session_id", s.id))
		m.release(s, inst, ReasonIdle, false)
	}
}
