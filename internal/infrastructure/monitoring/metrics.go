package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	SessionCrashes  prometheus.Counter

	// Service metrics (engine, suggest, extension operations)
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Frame metrics
	FramesCaptured *prometheus.CounterVec
	FramesDropped  prometheus.Counter
	FrameBytes     *prometheus.HistogramVec

	// Input metrics
	InputsTotal *prometheus.CounterVec

	// Extension metrics
	ExtensionsRegistered prometheus.Gauge
	ExtensionPacks       *prometheus.CounterVec

	// Channel metrics
	ChannelConnections prometheus.Gauge
	ChannelMessages    *prometheus.CounterVec
	ChannelEvictions   prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	ActiveSessions    int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasswing_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasswing_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasswing_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "glasswing_sessions_active",
				Help: "Number of active browser sessions",
			},
		),
		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "glasswing_sessions_created_total",
				Help: "Total number of browser sessions created",
			},
		),
		SessionsClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_sessions_closed_total",
				Help: "Total number of browser sessions closed",
			},
			[]string{"reason"},
		),
		SessionCrashes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "glasswing_session_crashes_total",
				Help: "Total number of engine crashes observed",
			},
		),

		// Service metrics
		ServiceCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasswing_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		// Frame metrics
		FramesCaptured: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_frames_captured_total",
				Help: "Total number of frames captured from the engine",
			},
			[]string{"source"},
		),
		FramesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "glasswing_frames_dropped_total",
				Help: "Total number of frames dropped by slow consumers",
			},
		),
		FrameBytes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasswing_frame_size_bytes",
				Help:    "Captured frame size in bytes",
				Buckets: []float64{1000, 10000, 50000, 100000, 250000, 500000, 1000000},
			},
			[]string{"source"},
		),

		// Input metrics
		InputsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_inputs_total",
				Help: "Total number of input events routed to sessions",
			},
			[]string{"type", "status"},
		),

		// Extension metrics
		ExtensionsRegistered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "glasswing_extensions_registered",
				Help: "Number of extensions in the registry",
			},
		),
		ExtensionPacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_extension_packs_total",
				Help: "Total number of extension pack operations",
			},
			[]string{"status"},
		),

		// Channel metrics
		ChannelConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "glasswing_channel_connections",
				Help: "Number of active streaming channel connections",
			},
		),
		ChannelMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasswing_channel_messages_total",
				Help: "Total number of streaming channel messages",
			},
			[]string{"direction", "type"},
		),
		ChannelEvictions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "glasswing_channel_evictions_total",
				Help: "Total number of channels evicted by a newer binding",
			},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "glasswing_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordFrameCaptured records a captured frame and its size
func (m *Metrics) RecordFrameCaptured(source string, size int) {
	m.FramesCaptured.WithLabelValues(source).Inc()
	m.FrameBytes.WithLabelValues(source).Observe(float64(size))
}

// IncFramesDropped increments the dropped frame counter
func (m *Metrics) IncFramesDropped() {
	m.FramesDropped.Inc()
}

// RecordInput records a routed input event
func (m *Metrics) RecordInput(inputType, status string) {
	m.InputsTotal.WithLabelValues(inputType, status).Inc()
}

// RecordChannelMessage records a streaming channel message
func (m *Metrics) RecordChannelMessage(direction, msgType string) {
	m.ChannelMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSessionsActive sets the number of active sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsCreated increments the sessions created counter
func (m *Metrics) IncSessionsCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionClosed records a session close with its reason
func (m *Metrics) RecordSessionClosed(reason string) {
	m.SessionsClosed.WithLabelValues(reason).Inc()
}

// IncSessionCrashes increments the engine crash counter
func (m *Metrics) IncSessionCrashes() {
	m.SessionCrashes.Inc()
}

// SetExtensionsRegistered sets the number of registered extensions
func (m *Metrics) SetExtensionsRegistered(count int) {
	m.ExtensionsRegistered.Set(float64(count))
}

// RecordExtensionPack records a pack operation outcome
func (m *Metrics) RecordExtensionPack(status string) {
	m.ExtensionPacks.WithLabelValues(status).Inc()
}

// IncChannelConnections increments streaming channel connections
func (m *Metrics) IncChannelConnections() {
	m.ChannelConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecChannelConnections decrements streaming channel connections
func (m *Metrics) DecChannelConnections() {
	m.ChannelConnections.Dec()
	m.mu.Lock()
	if m.snapshot.ActiveConnections > 0 {
		m.snapshot.ActiveConnections--
	}
	m.mu.Unlock()
}

// IncChannelEvictions increments the superseded-channel counter
func (m *Metrics) IncChannelEvictions() {
	m.ChannelEvictions.Inc()
}
