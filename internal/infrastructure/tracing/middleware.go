package tracing

import (
	"github.com/gin-gonic/gin"
)

// Trace propagation headers. The UI sends them so its own timeline can be
// stitched onto the service's spans; the service echoes the assigned pair
// back on every response.
const (
	HeaderTrace = "X-Trace-ID"
	HeaderSpan  = "X-Span-ID"
)

// HTTPMiddleware opens one span per request, joining the caller's trace
// when the propagation headers are present.
func HTTPMiddleware(t *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		inbound := SpanContext{
			Trace: TraceID(c.GetHeader(HeaderTrace)),
			Span:  SpanID(c.GetHeader(HeaderSpan)),
		}
		if inbound.Trace != "" {
			ctx = ContextWith(ctx, inbound)
		}

		op := c.FullPath()
		if op == "" {
			op = "unmatched"
		}
		span, ctx := t.Start(ctx, c.Request.Method+" "+op)
		span.Annotate("client", c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTrace, string(span.Context.Trace))
		c.Header(HeaderSpan, string(span.Context.Span))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.Fail(c.Errors.Last())
		}
		span.End()
	}
}
