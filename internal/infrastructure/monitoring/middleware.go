package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request metrics for every route. The route template is
// the path label, not the raw URL: session and extension ids would otherwise
// mint a label value per entity.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, route, status, time.Since(start), reqSize, int64(c.Writer.Size()))
	}
}

// Timer measures one outbound call for the service-call metrics.
type Timer struct {
	start   time.Time
	metrics *Metrics
	service string
	method  string
}

// NewTimer starts timing a call to service.method.
func NewTimer(metrics *Metrics, service, method string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		service: service,
		method:  method,
	}
}

// Stop records the elapsed time under the outcome status.
func (t *Timer) Stop(status string) {
	t.metrics.RecordServiceCall(t.service, t.method, status, time.Since(t.start))
}
