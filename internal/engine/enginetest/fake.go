// Package enginetest provides in-memory engine fakes for exercising the
// session, stream and input layers without a real browser.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/glasswinglabs/glasswing/internal/engine"
)

// Engine hands out scripted instances and records every launch.
type Engine struct {
	mu        sync.Mutex
	instances []*Instance
	launchErr error
	closed    bool
}

func NewEngine() *Engine {
	return &Engine{}
}

// FailNextLaunch makes the next NewInstance call return err once.
func (e *Engine) FailNextLaunch(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.launchErr = err
}

func (e *Engine) NewInstance(ctx context.Context, opts engine.Options) (engine.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.launchErr != nil {
		err := e.launchErr
		e.launchErr = nil
		return nil, err
	}

	inst := &Instance{
		opts:   opts,
		cursor: -1,
		titles: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
	e.instances = append(e.instances, inst)
	return inst, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Instances returns every instance launched so far.
func (e *Engine) Instances() []*Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Instance, len(e.instances))
	copy(out, e.instances)
	return out
}

// Closed reports whether Close was called on the engine itself.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Instance mirrors the real engine's history semantics in memory. Tests
// script failures per operation and trigger termination directly.
type Instance struct {
	mu      sync.Mutex
	opts    engine.Options
	history []string
	cursor  int
	titles  map[string]string
	frame   []byte
	nframes int
	lastQ   int
	errs    map[string]error
	calls   map[string]int
	ops     []string
	closed  bool

	termMu     sync.Mutex
	terminated bool
	termErr    error
	termFn     func(error)
}

// FailWith makes every subsequent call of op return err until cleared with
// a nil err. Operation names match the Instance methods: navigate, back,
// forward, refresh, click, type, keypress, scroll, state, capture.
func (i *Instance) FailWith(op string, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err == nil {
		delete(i.errs, op)
		return
	}
	i.errs[op] = err
}

// SetTitle fixes the title reported for url.
func (i *Instance) SetTitle(url, title string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.titles[url] = title
}

// SetFrame fixes the bytes returned by CaptureFrame. When unset, captures
// return generated frame-N payloads.
func (i *Instance) SetFrame(data []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.frame = data
}

// Terminate simulates a crash, firing the registered callback once.
func (i *Instance) Terminate(cause error) {
	i.termMu.Lock()
	if i.terminated {
		i.termMu.Unlock()
		return
	}
	i.terminated = true
	i.termErr = cause
	fn := i.termFn
	i.termMu.Unlock()

	if fn != nil {
		fn(cause)
	}
}

// Calls reports how many times op ran, failures included.
func (i *Instance) Calls(op string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls[op]
}

// Options returns the launch options recorded at creation.
func (i *Instance) Options() engine.Options {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.opts
}

// Ops returns the operation names in execution order.
func (i *Instance) Ops() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.ops))
	copy(out, i.ops)
	return out
}

// Captures reports the number of frames captured and the quality of the
// most recent capture.
func (i *Instance) Captures() (int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nframes, i.lastQ
}

// IsClosed reports whether Close was called.
func (i *Instance) IsClosed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

func (i *Instance) Navigate(ctx context.Context, url string) (engine.NavState, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.begin(ctx, "navigate"); err != nil {
		return engine.NavState{}, err
	}
	i.history = append(i.history[:i.cursor+1], url)
	i.cursor = len(i.history) - 1
	return i.stateLocked(), nil
}

func (i *Instance) Back(ctx context.Context) (engine.NavState, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.begin(ctx, "back"); err != nil {
		return engine.NavState{}, false, err
	}
	if i.cursor <= 0 {
		return i.stateLocked(), false, nil
	}
	i.cursor--
	return i.stateLocked(), true, nil
}

func (i *Instance) Forward(ctx context.Context) (engine.NavState, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.begin(ctx, "forward"); err != nil {
		return engine.NavState{}, false, err
	}
	if i.cursor >= len(i.history)-1 {
		return i.stateLocked(), false, nil
	}
	i.cursor++
	return i.stateLocked(), true, nil
}

func (i *Instance) Refresh(ctx context.Context) (engine.NavState, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.begin(ctx, "refresh"); err != nil {
		return engine.NavState{}, err
	}
	return i.stateLocked(), nil
}

func (i *Instance) Click(ctx context.Context, x, y float64, button engine.MouseButton) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.begin(ctx, "click")
}

func (i *Instance) TypeText(ctx context.Context, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.begin(ctx, "type")
}

func (i *Instance) Press(ctx context.Context, chord string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.begin(ctx, "keypress")
}

func (i *Instance) Scroll(ctx context.Context, deltaX, deltaY float64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.begin(ctx, "scroll")
}

func (i *Instance) State(ctx context.Context) (engine.NavState, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.begin(ctx, "state"); err != nil {
		return engine.NavState{}, err
	}
	return i.stateLocked(), nil
}

func (i *Instance) CaptureFrame(ctx context.Context, quality int) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.begin(ctx, "capture"); err != nil {
		return nil, err
	}
	i.nframes++
	i.lastQ = quality
	if i.frame != nil {
		out := make([]byte, len(i.frame))
		copy(out, i.frame)
		return out, nil
	}
	return []byte(fmt.Sprintf("frame-%d", i.nframes)), nil
}

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

func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

// begin counts the call and returns the scripted failure, if any. Callers
// hold i.mu.
func (i *Instance) begin(ctx context.Context, op string) error {
	i.calls[op]++
	i.ops = append(i.ops, op)
	if err := ctx.Err(); err != nil {
		return err
	}
	if i.closed {
		return fmt.Errorf("instance closed")
	}
	if err := i.errs[op]; err != nil {
		return err
	}
	return nil
}

func (i *Instance) stateLocked() engine.NavState {
	var url string
	if i.cursor >= 0 {
		url = i.history[i.cursor]
	}
	return engine.NavState{
		URL:          url,
		Title:        i.titles[url],
		CanGoBack:    i.cursor > 0,
		CanGoForward: i.cursor < len(i.history)-1,
	}
}
