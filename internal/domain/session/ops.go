package session

import (
	"context"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/engine"
)

// Capture sources, used as the metrics label for frame provenance.
const (
	SourceStream     = "stream"
	SourceScreenshot = "screenshot"
)

// Navigate loads a URL in the session's browser and returns the resulting
// navigable state.
func (m *Manager) Navigate(ctx context.Context, sessionID, url string) (engine.NavState, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return engine.NavState{}, err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	st, err := s.instance.Navigate(ctx, url)
	if err != nil {
		s.touch()
		return engine.NavState{}, err
	}
	s.applyNav(st)
	return st, nil
}

// Back steps one history entry back. moved is false at the start of
// history, with the current state returned unchanged.
func (m *Manager) Back(ctx context.Context, sessionID string) (engine.NavState, bool, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return engine.NavState{}, false, err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	st, moved, err := s.instance.Back(ctx)
	if err != nil {
		s.touch()
		return engine.NavState{}, false, err
	}
	s.applyNav(st)
	return st, moved, nil
}

// Forward steps one history entry forward. moved is false at the end of
// history, with the current state returned unchanged.
func (m *Manager) Forward(ctx context.Context, sessionID string) (engine.NavState, bool, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return engine.NavState{}, false, err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	st, moved, err := s.instance.Forward(ctx)
	if err != nil {
		s.touch()
		return engine.NavState{}, false, err
	}
	s.applyNav(st)
	return st, moved, nil
}

// Refresh reloads the current page.
func (m *Manager) Refresh(ctx context.Context, sessionID string) (engine.NavState, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return engine.NavState{}, err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	st, err := s.instance.Refresh(ctx)
	if err != nil {
		s.touch()
		return engine.NavState{}, err
	}
	s.applyNav(st)
	return st, nil
}

// Click dispatches a mouse click at viewport coordinates.
func (m *Manager) Click(ctx context.Context, sessionID string, x, y float64, button engine.MouseButton) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	err = s.instance.Click(ctx, x, y, button)
	s.touch()
	return err
}

// TypeText types into the focused element.
func (m *Manager) TypeText(ctx context.Context, sessionID, text string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	err = s.instance.TypeText(ctx, text)
	s.touch()
	return err
}

// Press dispatches a key or modifier chord such as "Control+a".
func (m *Manager) Press(ctx context.Context, sessionID, chord string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	err = s.instance.Press(ctx, chord)
	s.touch()
	return err
}

// Scroll dispatches a wheel event.
func (m *Manager) Scroll(ctx context.Context, sessionID string, deltaX, deltaY float64) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	err = s.instance.Scroll(ctx, deltaX, deltaY)
	s.touch()
	return err
}

// Capture grabs a fresh frame, refreshes the descriptor from the live page
// state and publishes the frame to the buffer. The published frame carries
// the next version for the session.
func (m *Manager) Capture(ctx context.Context, sessionID string, quality int, source string) (*frame.Frame, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	s.exec.Lock()
	defer s.exec.Unlock()

	data, err := s.instance.CaptureFrame(ctx, quality)
	if err != nil {
		s.touch()
		return nil, err
	}

	// Pages navigate themselves, so the frame reports the live state
	// rather than the last explicit navigation.
	st, stErr := s.instance.State(ctx)
	if stErr == nil {
		s.applyNav(st)
	} else {
		st = engine.NavState{}
		d := s.descriptor()
		st.URL, st.Title = d.CurrentURL, d.Title
		s.touch()
	}

	f := m.frames.Publish(sessionID, data, st.URL, st.Title)
	m.metrics.RecordFrameCaptured(source, len(data))
	return f, nil
}

// LatestFrame returns the session's most recent published frame, nil when
// none exists. Serves the stale-frame fallback when a capture times out.
func (m *Manager) LatestFrame(sessionID string) *frame.Frame {
	return m.frames.Latest(sessionID)
}
