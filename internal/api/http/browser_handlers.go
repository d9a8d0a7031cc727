package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/domain/input"
	"github.com/glasswinglabs/glasswing/internal/domain/session"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

type navigateRequest struct {
	URL string `json:"url"`
}

type clickRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button"`
}

type typeRequest struct {
	Text string `json:"text"`
}

type keypressRequest struct {
	Key       string          `json:"key"`
	Modifiers map[string]bool `json:"modifiers"`
}

type scrollRequest struct {
	DeltaX float64 `json:"delta_x"`
	DeltaY float64 `json:"delta_y"`
}

// bindJSON decodes the request body, reporting malformed bodies in the
// shared error shape.
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		respondError(c, errs.Wrap(errs.Invalid, "invalid request body", err))
		return false
	}
	return true
}

// Navigate loads a URL in the session.
func (h *Handlers) Navigate(c *gin.Context) {
	var req navigateRequest
	if !bindJSON(c, &req) {
		return
	}

	e := input.Event{Type: input.TypeNavigate, URL: req.URL}
	if err := e.Validate(); err != nil {
		respondError(c, err)
		return
	}

	st, err := h.sessions.Navigate(c.Request.Context(), c.Param("id"), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "navigated",
		"url":            st.URL,
		"title":          st.Title,
		"can_go_back":    st.CanGoBack,
		"can_go_forward": st.CanGoForward,
	})
}

// Back moves one entry back in the session history.
func (h *Handlers) Back(c *gin.Context) {
	st, moved, err := h.sessions.Back(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !moved {
		c.JSON(http.StatusOK, gin.H{"status": "no_history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "url": st.URL})
}

// Forward moves one entry forward in the session history.
func (h *Handlers) Forward(c *gin.Context) {
	st, moved, err := h.sessions.Forward(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !moved {
		c.JSON(http.StatusOK, gin.H{"status": "no_forward_history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "url": st.URL})
}

// Refresh reloads the current page.
func (h *Handlers) Refresh(c *gin.Context) {
	st, err := h.sessions.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed", "url": st.URL})
}

// Screenshot captures the current page. A capture that times out falls back
// to the last streamed frame so pollers keep getting a picture.
func (h *Handlers) Screenshot(c *gin.Context) {
	id := c.Param("id")

	f, err := h.sessions.Capture(c.Request.Context(), id, h.screenshotQuality, session.SourceScreenshot)
	if err != nil {
		if errs.IsTimeout(err) {
			if last := h.sessions.LatestFrame(id); last != nil {
				c.JSON(http.StatusOK, screenshotBody(last))
				return
			}
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, screenshotBody(f))
}

func screenshotBody(f *frame.Frame) gin.H {
	return gin.H{
		"screenshot": f.DataURI(),
		"url":        f.URL,
		"title":      f.Title,
		"version":    f.Version,
	}
}

// Click clicks at viewport coordinates.
func (h *Handlers) Click(c *gin.Context) {
	var req clickRequest
	if !bindJSON(c, &req) {
		return
	}

	e := input.Event{Type: input.TypeClick, X: req.X, Y: req.Y, Button: req.Button}
	if err := e.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.Click(c.Request.Context(), c.Param("id"), e.X, e.Y, e.MouseButton()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "clicked"})
}

// Type types text into the focused element.
func (h *Handlers) Type(c *gin.Context) {
	var req typeRequest
	if !bindJSON(c, &req) {
		return
	}

	e := input.Event{Type: input.TypeType, Text: req.Text}
	if err := e.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.TypeText(c.Request.Context(), c.Param("id"), req.Text); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "typed"})
}

// Keypress presses a key, optionally with modifiers.
func (h *Handlers) Keypress(c *gin.Context) {
	var req keypressRequest
	if !bindJSON(c, &req) {
		return
	}

	e := input.Event{Type: input.TypeKeypress, Key: req.Key, Modifiers: req.Modifiers}
	if err := e.Validate(); err != nil {
		respondError(c, err)
		return
	}

	chord := input.Chord(req.Key, req.Modifiers)
	if err := h.sessions.Press(c.Request.Context(), c.Param("id"), chord); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pressed"})
}

// Scroll scrolls the page by the given deltas.
func (h *Handlers) Scroll(c *gin.Context) {
	var req scrollRequest
	if !bindJSON(c, &req) {
		return
	}

	e := input.Event{Type: input.TypeScroll, DeltaX: req.DeltaX, DeltaY: req.DeltaY}
	if err := e.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.Scroll(c.Request.Context(), c.Param("id"), req.DeltaX, req.DeltaY); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "scrolled"})
}
