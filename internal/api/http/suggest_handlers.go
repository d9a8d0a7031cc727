package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchSuggestions returns autocomplete suggestions for a partial query.
// The endpoint always answers 200; backend trouble shows up as an empty
// list.
func (h *Handlers) SearchSuggestions(c *gin.Context) {
	query := c.Query("q")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	c.JSON(http.StatusOK, h.suggest.Suggestions(c.Request.Context(), query, limit))
}
