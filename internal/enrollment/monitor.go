// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package enrollment

import (
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	// Enrolled nodes by result.
	enrollments *prometheus.CounterVec
	// Resource classes written to ironic.
	resourceClassUpdates prometheus.Counter
}

func NewEnrollmentMonitor(registry *monitoring.Registry) Monitor {
	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_node_enrollments_total",
		Help: "Total number of ironic node enrollments",
	}, []string{"result"})
	resourceClassUpdates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flavor_matcher_resource_class_updates_total",
		Help: "Total number of resource classes set on ironic nodes",
	})
	registry.MustRegister(enrollments, resourceClassUpdates)
	return Monitor{enrollments: enrollments, resourceClassUpdates: resourceClassUpdates}
}
