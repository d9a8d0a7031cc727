package input

import (
	"context"

	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
)

// Applier is the slice of the session manager the router drives. Every
// call serializes on the session's executor, which makes arrival order
// the application order.
type Applier interface {
	Navigate(ctx context.Context, sessionID, url string) (engine.NavState, error)
	Back(ctx context.Context, sessionID string) (engine.NavState, bool, error)
	Forward(ctx context.Context, sessionID string) (engine.NavState, bool, error)
	Refresh(ctx context.Context, sessionID string) (engine.NavState, error)
	Click(ctx context.Context, sessionID string, x, y float64, button engine.MouseButton) error
	TypeText(ctx context.Context, sessionID, text string) error
	Press(ctx context.Context, sessionID, chord string) error
	Scroll(ctx context.Context, sessionID string, deltaX, deltaY float64) error
}

// Result reports what an applied event did. Nav is meaningful only when
// NavChanged is set.
type Result struct {
	NavChanged bool
	Nav        engine.NavState
}

// Router validates events and applies them to sessions. The session id
// always comes from the caller's binding, never from event payloads.
type Router struct {
	mgr     Applier
	metrics *monitoring.Metrics
}

func NewRouter(mgr Applier, metrics *monitoring.Metrics) *Router {
	return &Router{mgr: mgr, metrics: metrics}
}

// Apply validates and executes one event against the session. Malformed
// events are rejected without touching the session.
func (r *Router) Apply(ctx context.Context, sessionID string, e Event) (Result, error) {
	if err := e.Validate(); err != nil {
		r.metrics.RecordInput(string(e.Type), "invalid")
		return Result{}, err
	}

	res, err := r.apply(ctx, sessionID, e)
	if err != nil {
		r.metrics.RecordInput(string(e.Type), "error")
		return Result{}, err
	}
	r.metrics.RecordInput(string(e.Type), "ok")
	return res, nil
}

func (r *Router) apply(ctx context.Context, sessionID string, e Event) (Result, error) {
	switch e.Type {
	case TypeNavigate:
		st, err := r.mgr.Navigate(ctx, sessionID, e.URL)
		if err != nil {
			return Result{}, err
		}
		return Result{NavChanged: true, Nav: st}, nil

	case TypeBack:
		st, _, err := r.mgr.Back(ctx, sessionID)
		if err != nil {
			return Result{}, err
		}
		return Result{NavChanged: true, Nav: st}, nil

	case TypeForward:
		st, _, err := r.mgr.Forward(ctx, sessionID)
		if err != nil {
			return Result{}, err
		}
		return Result{NavChanged: true, Nav: st}, nil

	case TypeRefresh:
		st, err := r.mgr.Refresh(ctx, sessionID)
		if err != nil {
			return Result{}, err
		}
		return Result{NavChanged: true, Nav: st}, nil

	case TypeClick:
		return Result{}, r.mgr.Click(ctx, sessionID, e.X, e.Y, e.MouseButton())

	case TypeType:
		return Result{}, r.mgr.TypeText(ctx, sessionID, e.Text)

	case TypeKeypress:
		return Result{}, r.mgr.Press(ctx, sessionID, Chord(e.Key, e.Modifiers))

	default:
		return Result{}, r.mgr.Scroll(ctx, sessionID, e.DeltaX, e.DeltaY)
	}
}
