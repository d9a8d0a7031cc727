package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateSession starts a new browser session.
func (h *Handlers) CreateSession(c *gin.Context) {
	d, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": d.SessionID,
		"created_at": d.CreatedAt,
	})
}

// CloseSession tears down a session. Closing an unknown session succeeds so
// clients can retry without tracking state.
func (h *Handlers) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// SessionStatus returns the live descriptor of a session.
func (h *Handlers) SessionStatus(c *gin.Context) {
	d, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListSessions returns every active session.
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
