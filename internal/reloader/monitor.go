// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package reloader

import (
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	reloads    *prometheus.CounterVec
	flavors    prometheus.Gauge
	lastReload prometheus.Gauge
}

func NewReloaderMonitor(registry *monitoring.Registry) Monitor {
	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_flavor_reloads_total",
		Help: "Total number of flavor directory reloads",
	}, []string{"result"})
	flavors := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flavor_matcher_flavors",
		Help: "Number of flavors in the active catalog",
	})
	lastReload := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flavor_matcher_flavor_last_reload_timestamp_seconds",
		Help: "Time of the last successful flavor reload",
	})
	registry.MustRegister(reloads, flavors, lastReload)
	return Monitor{reloads: reloads, flavors: flavors, lastReload: lastReload}
}
