package chromium

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

// Instance wraps one browser, context and page. Navigation history lives
// here rather than in the page: back and forward replay recorded URLs so
// their availability can be reported without asking the browser.
type Instance struct {
	log  *logging.Logger
	opts engine.Options

	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page

	histMu  sync.Mutex
	history []string
	cursor  int

	closed    atomic.Bool
	closeOnce sync.Once

	termMu     sync.Mutex
	terminated bool
	termErr    error
	termFn     func(error)
}

// Navigate loads url and records it as the new history head, discarding
// any forward entries past the cursor.
func (i *Instance) Navigate(ctx context.Context, url string) (engine.NavState, error) {
	if err := i.preflight(ctx); err != nil {
		return engine.NavState{}, err
	}

	_, err := i.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(i.timeoutMs(ctx, i.opts.NavigateTimeout)),
	})
	if err != nil {
		return engine.NavState{}, i.classify(err, errs.Invalid, "page load failed")
	}

	i.histMu.Lock()
	i.history = append(i.history[:i.cursor+1], url)
	i.cursor = len(i.history) - 1
	i.histMu.Unlock()

	return i.state(), nil
}

// Back replays the previous history entry. At the start of history it
// reports moved=false with the current state and no error.
func (i *Instance) Back(ctx context.Context) (engine.NavState, bool, error) {
	if err := i.preflight(ctx); err != nil {
		return engine.NavState{}, false, err
	}

	i.histMu.Lock()
	if i.cursor <= 0 {
		i.histMu.Unlock()
		return i.state(), false, nil
	}
	target := i.history[i.cursor-1]
	i.histMu.Unlock()

	if err := i.replay(ctx, target); err != nil {
		return engine.NavState{}, false, err
	}

	i.histMu.Lock()
	i.cursor--
	i.histMu.Unlock()

	return i.state(), true, nil
}

// Forward replays the next history entry. At the end of history it reports
// moved=false with the current state and no error.
func (i *Instance) Forward(ctx context.Context) (engine.NavState, bool, error) {
	if err := i.preflight(ctx); err != nil {
		return engine.NavState{}, false, err
	}

	i.histMu.Lock()
	if i.cursor >= len(i.history)-1 {
		i.histMu.Unlock()
		return i.state(), false, nil
	}
	target := i.history[i.cursor+1]
	i.histMu.Unlock()

	if err := i.replay(ctx, target); err != nil {
		return engine.NavState{}, false, err
	}

	i.histMu.Lock()
	i.cursor++
	i.histMu.Unlock()

	return i.state(), true, nil
}

// Refresh reloads the current page without touching history.
func (i *Instance) Refresh(ctx context.Context) (engine.NavState, error) {
	if err := i.preflight(ctx); err != nil {
		return engine.NavState{}, err
	}

	_, err := i.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(i.timeoutMs(ctx, i.opts.NavigateTimeout)),
	})
	if err != nil {
		return engine.NavState{}, i.classify(err, errs.Invalid, "page reload failed")
	}

	return i.state(), nil
}

// Click dispatches a mouse click at viewport coordinates, clamped to the
// viewport bounds.
func (i *Instance) Click(ctx context.Context, x, y float64, button engine.MouseButton) error {
	if err := i.preflight(ctx); err != nil {
		return err
	}

	x = clamp(x, 0, float64(i.opts.ViewportWidth-1))
	y = clamp(y, 0, float64(i.opts.ViewportHeight-1))

	err := i.page.Mouse().Click(x, y, playwright.MouseClickOptions{
		Button: mouseButton(button),
	})
	if err != nil {
		return i.classify(err, errs.Unavailable, "click failed")
	}
	return nil
}

// TypeText types text into whatever element currently holds focus.
func (i *Instance) TypeText(ctx context.Context, text string) error {
	if err := i.preflight(ctx); err != nil {
		return err
	}
	if err := i.page.Keyboard().Type(text); err != nil {
		return i.classify(err, errs.Unavailable, "type failed")
	}
	return nil
}

// Press dispatches a single key or modifier chord such as "Control+a".
func (i *Instance) Press(ctx context.Context, chord string) error {
	if err := i.preflight(ctx); err != nil {
		return err
	}
	if err := i.page.Keyboard().Press(chord); err != nil {
		return i.classify(err, errs.Unavailable, "keypress failed")
	}
	return nil
}

// Scroll dispatches a wheel event at the current mouse position. Deltas
// are clamped to one viewport span per event; larger scrolls arrive as
// more events.
func (i *Instance) Scroll(ctx context.Context, deltaX, deltaY float64) error {
	if err := i.preflight(ctx); err != nil {
		return err
	}

	w, h := float64(i.opts.ViewportWidth), float64(i.opts.ViewportHeight)
	deltaX = clamp(deltaX, -w, w)
	deltaY = clamp(deltaY, -h, h)

	if err := i.page.Mouse().Wheel(deltaX, deltaY); err != nil {
		return i.classify(err, errs.Unavailable, "scroll failed")
	}
	return nil
}

// State reports the current URL, title and history affordances.
func (i *Instance) State(ctx context.Context) (engine.NavState, error) {
	if err := i.preflight(ctx); err != nil {
		return engine.NavState{}, err
	}
	return i.state(), nil
}

// CaptureFrame renders the viewport as JPEG at the given quality.
func (i *Instance) CaptureFrame(ctx context.Context, quality int) ([]byte, error) {
	if err := i.preflight(ctx); err != nil {
		return nil, err
	}

	data, err := i.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(quality),
		Timeout: playwright.Float(i.timeoutMs(ctx, i.opts.CaptureTimeout)),
	})
	if err != nil {
		return nil, i.classify(err, errs.Unavailable, "frame capture failed")
	}
	return data, nil
}

// OnTerminated registers the termination callback. If the instance already
// terminated the callback fires immediately with the recorded cause.
func (i *Instance) OnTerminated(fn func(err error)) {
	i.termMu.Lock()
	if i.terminated {
		cause := i.termErr
		i.termMu.Unlock()
		fn(cause)
		return
	}
	i.termFn = fn
	i.termMu.Unlock()
}

// Close tears the browser down. Safe to call more than once and after a
// crash; close errors are ignored because the process may already be gone.
func (i *Instance) Close() error {
	i.closeOnce.Do(func() {
		i.closed.Store(true)
		i.page.Close()
		i.bctx.Close()
		i.browser.Close()
	})
	return nil
}

// replay drives a history traversal through a plain load of the recorded
// URL, which keeps the recorded order authoritative even when the page
// rewrote its own location.
func (i *Instance) replay(ctx context.Context, url string) error {
	_, err := i.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(i.timeoutMs(ctx, i.opts.NavigateTimeout)),
	})
	if err != nil {
		return i.classify(err, errs.Invalid, "history load failed")
	}
	return nil
}

func (i *Instance) state() engine.NavState {
	title, _ := i.page.Title()

	i.histMu.Lock()
	back := i.cursor > 0
	forward := i.cursor < len(i.history)-1
	i.histMu.Unlock()

	return engine.NavState{
		URL:          i.page.URL(),
		Title:        title,
		CanGoBack:    back,
		CanGoForward: forward,
	}
}

// terminate records the first termination cause and fires the callback.
// Termination after a deliberate Close is expected browser teardown and
// is dropped.
func (i *Instance) terminate(cause error) {
	if i.closed.Load() {
		return
	}

	i.termMu.Lock()
	if i.terminated {
		i.termMu.Unlock()
		return
	}
	i.terminated = true
	i.termErr = cause
	fn := i.termFn
	i.termMu.Unlock()

	i.log.Warn("browser instance terminated", zap.Error(cause))
	if fn != nil {
		fn(cause)
	}
}

// preflight rejects work on dead instances and spent contexts before any
// protocol round trip.
func (i *Instance) preflight(ctx context.Context) error {
	if i.closed.Load() {
		return errs.New(errs.Unavailable, "browser instance is closed")
	}

	i.termMu.Lock()
	terminated, cause := i.terminated, i.termErr
	i.termMu.Unlock()
	if terminated {
		return errs.Wrap(errs.Unavailable, "browser instance terminated", cause)
	}

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errs.Wrap(errs.Timeout, "operation deadline exceeded", err)
		}
		return errs.Wrap(errs.Unavailable, "operation canceled", err)
	}
	return nil
}

// timeoutMs derives the protocol timeout from the context deadline when one
// is set, otherwise from the configured default.
func (i *Instance) timeoutMs(ctx context.Context, def time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		ms := time.Until(deadline).Milliseconds()
		if ms < 1 {
			ms = 1
		}
		return float64(ms)
	}
	return float64(def.Milliseconds())
}

// classify maps a protocol error onto the service taxonomy: timeouts stay
// timeouts, dead targets are unavailable, everything else takes the
// operation's own code.
func (i *Instance) classify(err error, code errs.Code, msg string) error {
	switch {
	case isTimeoutErr(err):
		return errs.Wrap(errs.Timeout, msg, err)
	case i.closed.Load() || isClosedErr(err):
		return errs.Wrap(errs.Unavailable, msg, err)
	default:
		return errs.Wrap(code, msg, err)
	}
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Timeout") && strings.Contains(msg, "exceeded")
}

func isClosedErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "has been closed") ||
		strings.Contains(msg, "Target closed") ||
		strings.Contains(msg, "use of closed")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mouseButton(b engine.MouseButton) *playwright.MouseButton {
	switch b {
	case engine.ButtonRight:
		return playwright.MouseButtonRight
	case engine.ButtonMiddle:
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}
