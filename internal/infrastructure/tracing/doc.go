/*
Package tracing correlates everything the service does on behalf of one
client request.

# Overview

A navigate command touches the session registry, the browser engine, and the
frame pipeline before its response leaves the process; a suggestion query
adds an upstream completion fetch. Tracing stitches those steps together:
each request gets a trace id, each timed operation inside it a span, and
finished spans surface as structured log lines carrying both.

# Model

A Span records one operation: its ids, parent, duration, HTTP status, error,
and free-form string attributes. Spans nest through context.Context: Start
reads the parent from the context and returns a new context carrying the
child, so call trees trace themselves without plumbing ids by hand.

Finished spans go to a buffered sink and are emitted off the request path.
A full sink drops the span and bumps a counter instead of blocking the
handler; Dropped exposes the count.

# Propagation

The X-Trace-ID and X-Span-ID headers carry the pair across the wire. The UI
may send them to join its timeline onto the service's; every response echoes
the ids the request was served under.

# Usage

	tracer := tracing.New("glasswing", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual spans inside a handler:
	span, ctx := tracer.Start(ctx, "engine.navigate")
	span.Annotate("url", target)
	if err != nil {
		span.Fail(err)
	}
	span.End()

Close flushes buffered spans; anything ended afterwards is dropped.
*/
package tracing
