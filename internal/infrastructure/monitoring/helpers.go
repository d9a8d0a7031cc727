package monitoring

import "time"

// Stats is a JSON-friendly view of the snapshot for the stats endpoint.
type Stats struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetStats returns current aggregate values for the JSON stats endpoint.
// Prometheus exposition stays on /metrics; this is the cheap human view.
func (m *Metrics) GetStats() Stats {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	stats := Stats{
		TotalRequests:     snap.TotalRequests,
		TotalErrors:       snap.TotalErrors,
		ActiveSessions:    snap.ActiveSessions,
		ActiveConnections: snap.ActiveConnections,
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
	}
	if snap.RequestCount > 0 {
		stats.AvgDurationMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	return stats
}
