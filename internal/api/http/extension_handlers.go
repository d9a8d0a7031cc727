package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

type loadExtensionRequest struct {
	Path string `json:"path"`
}

type packExtensionRequest struct {
	Path       string `json:"path"`
	SigningKey string `json:"signing_key"`
}

type toggleExtensionRequest struct {
	Enabled *bool `json:"enabled"`
}

// registryEnabled guards the extension endpoints when the registry is
// switched off.
func (h *Handlers) registryEnabled(c *gin.Context) bool {
	if h.extensions == nil {
		respondError(c, errs.New(errs.Unavailable, "extension registry disabled"))
		return false
	}
	return true
}

// ListExtensions returns the full catalog.
func (h *Handlers) ListExtensions(c *gin.Context) {
	if !h.registryEnabled(c) {
		return
	}
	records := h.extensions.List()
	c.JSON(http.StatusOK, gin.H{
		"extensions": records,
		"count":      len(records),
	})
}

// LoadExtension registers an unpacked extension directory.
func (h *Handlers) LoadExtension(c *gin.Context) {
	if !h.registryEnabled(c) {
		return
	}

	var req loadExtensionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Path == "" {
		respondError(c, errs.New(errs.Invalid, "path is required"))
		return
	}

	rec, err := h.extensions.LoadUnpacked(c.Request.Context(), req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "loaded",
		"extension": rec,
	})
}

// PackExtension archives an extension directory, optionally signing it.
func (h *Handlers) PackExtension(c *gin.Context) {
	if !h.registryEnabled(c) {
		return
	}

	var req packExtensionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Path == "" {
		respondError(c, errs.New(errs.Invalid, "path is required"))
		return
	}

	rec, res, err := h.extensions.Pack(c.Request.Context(), req.Path, req.SigningKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "packed",
		"extension": rec,
		"archive":   res.ArchivePath,
		"size":      res.Size,
		"signed":    res.Signed,
	})
}

// ToggleExtension flips whether an extension loads into new sessions.
func (h *Handlers) ToggleExtension(c *gin.Context) {
	if !h.registryEnabled(c) {
		return
	}

	var req toggleExtensionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Enabled == nil {
		respondError(c, errs.New(errs.Invalid, "enabled is required"))
		return
	}

	rec, err := h.extensions.Toggle(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "toggled",
		"extension": rec,
	})
}

// RemoveExtension deletes an extension from the catalog.
func (h *Handlers) RemoveExtension(c *gin.Context) {
	if !h.registryEnabled(c) {
		return
	}

	if err := h.extensions.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
