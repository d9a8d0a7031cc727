/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the service,
tracking HTTP requests, engine operations, session lifecycle, frame capture,
and streaming channels.

# Features

- HTTP request metrics (latency, throughput, size)
- Service call metrics for engine, suggest, and extension operations
- Session lifecycle metrics (created, closed by reason, crashes)
- Frame capture metrics (count, size, drops)
- Input routing metrics
- Streaming channel metrics (connections, messages, evictions)
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.SetSessionsActive(5)
	metrics.RecordSessionClosed("idle")

	// Time operations
	timer := monitoring.NewTimer(metrics, "engine", "navigate")
	// ... perform operation ...
	timer.Stop("ok")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
