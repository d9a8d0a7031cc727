// Package input defines the typed input events and routes them onto
// sessions in arrival order.
package input

import (
	"math"
	"sort"
	"strings"

	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
	"github.com/glasswinglabs/glasswing/internal/shared/utils"
)

// Type discriminates input events.
type Type string

const (
	TypeNavigate Type = "navigate"
	TypeClick    Type = "click"
	TypeType     Type = "type"
	TypeKeypress Type = "keypress"
	TypeScroll   Type = "scroll"
	TypeBack     Type = "back"
	TypeForward  Type = "forward"
	TypeRefresh  Type = "refresh"
)

// Event is the wire shape shared by the streaming channel and the REST
// input endpoints. Scroll deltas keep their camelCase names from the
// protocol.
type Event struct {
	Type      Type            `json:"type"`
	URL       string          `json:"url,omitempty"`
	X         float64         `json:"x,omitempty"`
	Y         float64         `json:"y,omitempty"`
	Button    string          `json:"button,omitempty"`
	Text      string          `json:"text,omitempty"`
	Key       string          `json:"key,omitempty"`
	Modifiers map[string]bool `json:"modifiers,omitempty"`
	DeltaX    float64         `json:"deltaX,omitempty"`
	DeltaY    float64         `json:"deltaY,omitempty"`
}

// Validate checks the event shape without touching any session state.
func (e Event) Validate() error {
	switch e.Type {
	case TypeNavigate:
		if err := utils.ValidateURL(e.URL); err != nil {
			return errs.Wrap(errs.Invalid, "invalid url", err)
		}
		return nil
	case TypeClick:
		if !finite(e.X) || !finite(e.Y) {
			return errs.New(errs.Invalid, "click coordinates must be finite")
		}
		if e.Button != "" && !engine.MouseButton(e.Button).Valid() {
			return errs.Newf(errs.Invalid, "unknown mouse button %q", e.Button)
		}
		return nil
	case TypeType:
		if e.Text == "" {
			return errs.New(errs.Invalid, "text must not be empty")
		}
		if len(e.Text) > utils.MaxTextLength {
			return errs.Newf(errs.Invalid, "text exceeds %d bytes", utils.MaxTextLength)
		}
		return nil
	case TypeKeypress:
		if err := utils.ValidateKey(e.Key); err != nil {
			return errs.Wrap(errs.Invalid, "invalid key", err)
		}
		return nil
	case TypeScroll:
		if !finite(e.DeltaX) || !finite(e.DeltaY) {
			return errs.New(errs.Invalid, "scroll deltas must be finite")
		}
		return nil
	case TypeBack, TypeForward, TypeRefresh:
		return nil
	default:
		return errs.Newf(errs.Invalid, "unknown input type %q", e.Type)
	}
}

// MouseButton maps the wire button name onto the engine's, defaulting to
// left.
func (e Event) MouseButton() engine.MouseButton {
	if e.Button == "" {
		return engine.ButtonLeft
	}
	return engine.MouseButton(e.Button)
}

// NavAffecting reports whether applying the event can change the page the
// session is on.
func (e Event) NavAffecting() bool {
	switch e.Type {
	case TypeNavigate, TypeBack, TypeForward, TypeRefresh:
		return true
	}
	return false
}

// chordOrder fixes the modifier position in a combo, matching the
// browser's accelerator convention.
var chordOrder = map[string]int{
	"ctrl":  0,
	"alt":   1,
	"shift": 2,
	"meta":  3,
}

var chordNames = map[string]string{
	"ctrl":  "Control",
	"alt":   "Alt",
	"shift": "Shift",
	"meta":  "Meta",
}

// Chord composes a key plus modifier set into the engine's combo string,
// such as "Control+Shift+r". Unknown modifier names are ignored.
func Chord(key string, modifiers map[string]bool) string {
	active := make([]string, 0, len(modifiers))
	for name, on := range modifiers {
		if on && chordNames[name] != "" {
			active = append(active, name)
		}
	}
	sort.Slice(active, func(a, b int) bool {
		return chordOrder[active[a]] < chordOrder[active[b]]
	})

	parts := make([]string, 0, len(active)+1)
	for _, name := range active {
		parts = append(parts, chordNames[name])
	}
	parts = append(parts, key)
	return strings.Join(parts, "+")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
