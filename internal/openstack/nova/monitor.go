// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package nova

import (
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	// Duration of requests against the nova api.
	requestTimer *prometheus.HistogramVec
	// Actions taken on nova flavors by the syncer.
	actions *prometheus.CounterVec
	// Number of full syncs by result.
	syncs *prometheus.CounterVec
}

func NewNovaMonitor(registry *monitoring.Registry) Monitor {
	requestTimer := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flavor_matcher_nova_request_duration_seconds",
		Help:    "Duration of requests against the nova api",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_nova_flavor_actions_total",
		Help: "Total number of actions taken on nova flavors",
	}, []string{"action"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_nova_syncs_total",
		Help: "Total number of nova flavor syncs",
	}, []string{"result"})
	registry.MustRegister(requestTimer, actions, syncs)
	return Monitor{requestTimer: requestTimer, actions: actions, syncs: syncs}
}
