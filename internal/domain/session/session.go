package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glasswinglabs/glasswing/internal/engine"
)

// State is a session lifecycle phase.
type State string

const (
	// StateCreating reserves the id while the engine launches; hidden
	// from lookups.
	StateCreating State = "creating"
	// StateActive accepts navigation, input and capture.
	StateActive State = "active"
	// StateClosing drains teardown; no new operations.
	StateClosing State = "closing"
	// StateCrashed marks an engine-side death pending removal.
	StateCrashed State = "crashed"
	// StateClosed is terminal; the id is about to leave the table.
	StateClosed State = "closed"
)

// Descriptor is the externally visible snapshot of a session.
type Descriptor struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	CurrentURL   string    `json:"current_url"`
	Title        string    `json:"title"`
	CanGoBack    bool      `json:"can_go_back"`
	CanGoForward bool      `json:"can_go_forward"`
	State        State     `json:"state"`
}

// Session pairs one engine instance with its bookkeeping. The manager owns
// the table; nothing outside this package holds a *Session.
type Session struct {
	id        string
	createdAt time.Time

	// mu guards state and the descriptor fields. exec serializes every
	// engine call so capture and input never race on one instance.
	mu   sync.Mutex
	exec sync.Mutex

	state        State
	currentURL   string
	title        string
	canGoBack    bool
	canGoForward bool
	lastActivity time.Time

	instance engine.Instance
	bound    atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Session) descriptor() Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Descriptor{
		SessionID:    s.id,
		CreatedAt:    s.createdAt,
		CurrentURL:   s.currentURL,
		Title:        s.title,
		CanGoBack:    s.canGoBack,
		CanGoForward: s.canGoForward,
		State:        s.state,
	}
}

// applyNav folds a navigation result into the descriptor and refreshes the
// activity clock.
func (s *Session) applyNav(st engine.NavState) {
	s.mu.Lock()
	s.currentURL = st.URL
	s.title = st.Title
	s.canGoBack = st.CanGoBack
	s.canGoForward = st.CanGoForward
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
