// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package classification

import (
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	// Classifications by chosen flavor, empty for unclassifiable machines.
	classifications *prometheus.CounterVec
	// Number of eligible flavors per classification.
	eligibleFlavors prometheus.Histogram
	// Time it took to match a machine against the catalog.
	duration prometheus.Histogram
	// Failures to record or publish decisions.
	sideEffectErrors *prometheus.CounterVec
}

func NewClassificationMonitor(registry *monitoring.Registry) Monitor {
	classifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_classifications_total",
		Help: "Total number of machine classifications",
	}, []string{"flavor", "result"})
	eligibleFlavors := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flavor_matcher_eligible_flavors",
		Help:    "Number of flavors a classified machine was eligible for",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flavor_matcher_classification_duration_seconds",
		Help:    "Duration of matching a machine against the flavor catalog",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
	sideEffectErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_decision_side_effect_errors_total",
		Help: "Total number of failures to record or publish a decision",
	}, []string{"kind"})
	registry.MustRegister(classifications, eligibleFlavors, duration, sideEffectErrors)
	return Monitor{
		classifications:  classifications,
		eligibleFlavors:  eligibleFlavors,
		duration:         duration,
		sideEffectErrors: sideEffectErrors,
	}
}

func (m Monitor) observe(d Decision, took time.Duration) {
	result := "classified"
	if !d.Classified {
		result = "unclassifiable"
	}
	m.classifications.WithLabelValues(d.Flavor, result).Inc()
	m.eligibleFlavors.Observe(float64(len(d.Eligible)))
	m.duration.Observe(took.Seconds())
}
