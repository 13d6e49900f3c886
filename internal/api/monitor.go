// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

// Collection of Prometheus metrics to monitor the api.
type Monitor struct {
	// A histogram to measure how long the API requests take to run.
	requestTimer *prometheus.HistogramVec
}

func NewAPIMonitor(registry *monitoring.Registry) Monitor {
	requestTimer := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flavor_matcher_api_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status", "error"})
	registry.MustRegister(requestTimer)
	return Monitor{requestTimer: requestTimer}
}

// Helper to respond to the request with the given code and error.
// Adds monitoring for the time it took to handle the request.
type MonitoredCallback struct {
	monitor *Monitor
	w       http.ResponseWriter
	r       *http.Request
	pattern string
	t       time.Time
}

func (m *Monitor) Callback(w http.ResponseWriter, r *http.Request, pattern string) MonitoredCallback {
	return MonitoredCallback{monitor: m, w: w, r: r, pattern: pattern, t: time.Now()}
}

// Respond to the request with the given code and error.
// If err is nil, the response must already have been written.
func (c MonitoredCallback) Respond(code int, err error, text string) {
	if c.monitor != nil && c.monitor.requestTimer != nil {
		c.monitor.requestTimer.
			WithLabelValues(c.r.Method, c.pattern, strconv.Itoa(code), text).
			Observe(time.Since(c.t).Seconds())
	}
	if err != nil {
		slog.Error("failed to handle request", "path", c.pattern, "error", err)
		http.Error(c.w, text, code)
	}
}
