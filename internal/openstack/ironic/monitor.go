// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package ironic

import (
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	// Duration of requests against the ironic api.
	requestTimer *prometheus.HistogramVec
}

func NewIronicMonitor(registry *monitoring.Registry) Monitor {
	requestTimer := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flavor_matcher_ironic_request_duration_seconds",
		Help:    "Duration of requests against the ironic api",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	registry.MustRegister(requestTimer)
	return Monitor{requestTimer: requestTimer}
}
