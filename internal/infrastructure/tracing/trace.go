package tracing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glasswinglabs/glasswing/internal/shared/id"
	"go.uber.org/zap"
)

// TraceID ties together every span produced while serving one client request.
type TraceID string

// SpanID identifies one timed operation within a trace.
type SpanID string

// SpanContext is the pair propagated across process boundaries.
type SpanContext struct {
	Trace TraceID
	Span  SpanID
}

type ctxKey struct{}

// ContextWith returns ctx carrying sc for child spans to pick up.
func ContextWith(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromContext returns the span context carried by ctx, if any.
func FromContext(ctx context.Context) (SpanContext, bool) {
	sc, ok := ctx.Value(ctxKey{}).(SpanContext)
	return sc, ok
}

// Span is one timed operation: a handled request, an engine call, an
// upstream completion fetch.
type Span struct {
	Context SpanContext
	Parent  SpanID
	Op      string
	Started time.Time
	Elapsed time.Duration
	Status  int
	Err     error

	tracer *Tracer
	attrs  map[string]string
}

// Tracer collects finished spans on a buffered sink and emits them as
// structured log lines off the request path.
type Tracer struct {
	service string
	log     *zap.Logger
	sink    chan *Span
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once
	dropped atomic.Uint64
}

// New starts a tracer for service. Callers own it and must Close it.
func New(service string, log *zap.Logger) *Tracer {
	t := &Tracer{
		service: service,
		log:     log,
		sink:    make(chan *Span, 1024),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go t.drain()
	return t
}

// Start opens a span named op. If ctx already carries a span context the new
// span joins that trace as a child; otherwise a fresh trace begins. The
// returned context carries the new span for further nesting.
func (t *Tracer) Start(ctx context.Context, op string) (*Span, context.Context) {
	parent, _ := FromContext(ctx)

	sc := SpanContext{Trace: parent.Trace, Span: SpanID(id.NewRequestID())}
	if sc.Trace == "" {
		sc.Trace = TraceID(id.NewRequestID())
	}

	s := &Span{
		Context: sc,
		Parent:  parent.Span,
		Op:      op,
		Started: time.Now(),
		tracer:  t,
	}
	return s, ContextWith(ctx, sc)
}

// Annotate attaches a string attribute emitted with the span.
func (s *Span) Annotate(key, value string) {
	if s.attrs == nil {
		s.attrs = make(map[string]string, 4)
	}
	s.attrs[key] = value
}

// Fail records err; the span is emitted at error level when it ends.
func (s *Span) Fail(err error) {
	s.Err = err
}

// SetStatus records the HTTP status the span resolved to.
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// End stamps the duration and hands the span to the collector. When the
// sink is full the span is counted as dropped instead of blocking the
// request path.
func (s *Span) End() {
	s.Elapsed = time.Since(s.Started)
	select {
	case s.tracer.sink <- s:
	default:
		s.tracer.dropped.Add(1)
	}
}

// Dropped reports how many spans were discarded on a full sink.
func (t *Tracer) Dropped() uint64 {
	return t.dropped.Load()
}

// Close flushes buffered spans and stops the collector. Spans ended after
// Close are dropped.
func (t *Tracer) Close() {
	t.stop.Do(func() {
		close(t.quit)
		<-t.done
	})
}

func (t *Tracer) drain() {
	defer close(t.done)
	for {
		select {
		case s := <-t.sink:
			t.emit(s)
		case <-t.quit:
			for {
				select {
				case s := <-t.sink:
					t.emit(s)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) emit(s *Span) {
	fields := make([]zap.Field, 0, 8+len(s.attrs))
	fields = append(fields,
		zap.String("trace_id", string(s.Context.Trace)),
		zap.String("span_id", string(s.Context.Span)),
		zap.String("op", s.Op),
		zap.String("service", t.service),
		zap.Duration("elapsed", s.Elapsed),
	)
	if s.Parent != "" {
		fields = append(fields, zap.String("parent_id", string(s.Parent)))
	}
	if s.Status != 0 {
		fields = append(fields, zap.Int("status", s.Status))
	}
	for k, v := range s.attrs {
		fields = append(fields, zap.String(k, v))
	}

	if s.Err != nil {
		t.log.Error("span", append(fields, zap.Error(s.Err))...)
		return
	}
	t.log.Debug("span", fields...)
}
