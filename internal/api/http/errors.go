package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch errs.CodeOf(err) {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.NotReady:
		return http.StatusConflict
	case errs.Invalid:
		return http.StatusBadRequest
	case errs.Timeout:
		return http.StatusGatewayTimeout
	case errs.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the classified error as JSON. The message drops the
// code prefix since the code travels in its own field.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error": errs.MessageOf(err),
		"code":  string(errs.CodeOf(err)),
	})
}
