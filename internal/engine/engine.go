// Package engine defines the contract between the session layer and a
// headless browser implementation.
//
// An Engine owns one browser runtime process shared by nothing: each session
// gets its own Instance with an isolated profile, viewport, and history. All
// blocking operations take a context and classify failures with the shared
// error taxonomy (Unavailable for a dead runtime, Timeout for exceeded
// deadlines, LoadFailed wrapping for navigation errors).
package engine

import (
	"context"
	"time"
)

// MouseButton identifies a pointer button for click events.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Valid reports whether b is a supported button.
func (b MouseButton) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}

// Options configures a new Instance.
type Options struct {
	Headless        bool
	ViewportWidth   int
	ViewportHeight  int
	UserAgent       string
	NavigateTimeout time.Duration
	ActionTimeout   time.Duration
	CaptureTimeout  time.Duration

	// ExtraArgs are appended to the browser launch switches. The extension
	// registry uses this to inject --load-extension flags.
	ExtraArgs []string
}

// NavState is the navigable state reported after every page operation.
type NavState struct {
	URL          string
	Title        string
	CanGoBack    bool
	CanGoForward bool
}

// Engine creates browser instances.
type Engine interface {
	// NewInstance starts an isolated browser instance. The returned Instance
	// is ready for navigation.
	NewInstance(ctx context.Context, opts Options) (Instance, error)

	// Close tears down the runtime and every remaining instance.
	Close() error
}

// Instance is a single isolated browser surface owned by one session.
//
// Implementations do not serialize calls; the session layer guarantees that
// at most one operation runs per instance at a time, except CaptureFrame
// which may run concurrently with input operations.
type Instance interface {
	// Navigate loads a URL and records it in the history cursor, truncating
	// any forward entries.
	Navigate(ctx context.Context, url string) (NavState, error)

	// Back moves one entry back in history. When already at the oldest entry
	// it reports moved=false and returns the current state unchanged.
	Back(ctx context.Context) (NavState, bool, error)

	// Forward moves one entry forward in history. When already at the newest
	// entry it reports moved=false and returns the current state unchanged.
	Forward(ctx context.Context) (NavState, bool, error)

	// Refresh reloads the current page.
	Refresh(ctx context.Context) (NavState, error)

	// Click dispatches a pointer click at viewport coordinates. Coordinates
	// outside the viewport are clamped to its edges.
	Click(ctx context.Context, x, y float64, button MouseButton) error

	// TypeText types text into the focused element.
	TypeText(ctx context.Context, text string) error

	// Press dispatches a key chord such as "Enter" or "Control+a".
	Press(ctx context.Context, chord string) error

	// Scroll dispatches a wheel event with the given deltas, clamped to
	// one viewport span per event.
	Scroll(ctx context.Context, deltaX, deltaY float64) error

	// State returns the current navigable state without side effects.
	State(ctx context.Context) (NavState, error)

	// CaptureFrame captures the viewport as a JPEG at the given quality.
	// Bounded by the instance capture timeout when ctx carries no deadline.
	CaptureFrame(ctx context.Context, quality int) ([]byte, error)

	// OnTerminated registers a callback fired once when the underlying
	// browser dies outside a Close call. Registration after termination
	// fires immediately.
	OnTerminated(fn func(err error))

	// Close releases the instance. Idempotent.
	Close() error
}
