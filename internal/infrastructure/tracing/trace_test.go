package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTracer(t *testing.T) *Tracer {
	t.Helper()
	tr := New("glasswing", zap.NewNop())
	t.Cleanup(tr.Close)
	return tr
}

func TestSpanParentage(t *testing.T) {
	tr := newTracer(t)

	root, ctx := tr.Start(context.Background(), "request")
	require.NotEmpty(t, root.Context.Trace)
	require.NotEmpty(t, root.Context.Span)
	assert.Empty(t, root.Parent)

	child, _ := tr.Start(ctx, "engine.navigate")
	assert.Equal(t, root.Context.Trace, child.Context.Trace)
	assert.Equal(t, root.Context.Span, child.Parent)
	assert.NotEqual(t, root.Context.Span, child.Context.Span)
}

func TestInboundContextJoinsTrace(t *testing.T) {
	tr := newTracer(t)

	inbound := SpanContext{Trace: "trace-ui", Span: "span-ui"}
	span, _ := tr.Start(ContextWith(context.Background(), inbound), "request")

	assert.Equal(t, TraceID("trace-ui"), span.Context.Trace)
	assert.Equal(t, SpanID("span-ui"), span.Parent)
}

func TestCloseFlushesSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tr := New("glasswing", zap.New(core))

	span, _ := tr.Start(context.Background(), "engine.click")
	span.Annotate("selector", "#go")
	span.End()

	failed, _ := tr.Start(context.Background(), "engine.navigate")
	failed.Fail(errors.New("net::ERR_NAME_NOT_RESOLVED"))
	failed.End()

	tr.Close()

	entries := logs.FilterMessage("span").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, string(span.Context.Trace), fields["trace_id"])
	assert.Equal(t, "#go", fields["selector"])
}

func TestMiddlewarePropagatesHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tr := newTracer(t)

	var seen SpanContext
	router := gin.New()
	router.Use(HTTPMiddleware(tr))
	router.GET("/browser/:id/screenshot", func(c *gin.Context) {
		seen, _ = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/browser/sess_1/screenshot", nil)
	req.Header.Set(HeaderTrace, "trace-ui")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, TraceID("trace-ui"), seen.Trace)
	require.NotEmpty(t, seen.Span)

	assert.Equal(t, "trace-ui", w.Header().Get(HeaderTrace))
	assert.Equal(t, string(seen.Span), w.Header().Get(HeaderSpan))
}

func TestMiddlewareStartsFreshTrace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tr := newTracer(t)

	router := gin.New()
	router.Use(HTTPMiddleware(tr))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, w.Header().Get(HeaderTrace))
	assert.NotEmpty(t, w.Header().Get(HeaderSpan))
}
