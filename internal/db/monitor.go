// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"database/sql"

	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/dlmiddlecote/sqlstats"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	registry           *monitoring.Registry
	connectionAttempts prometheus.Counter
}

func NewDBMonitor(registry *monitoring.Registry) Monitor {
	connectionAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flavor_matcher_db_connection_attempts_total",
		Help: "Total number of attempts to connect to the database",
	})
	registry.MustRegister(connectionAttempts)
	return Monitor{
		registry:           registry,
		connectionAttempts: connectionAttempts,
	}
}

// Export the connection pool stats of the given database.
func (m Monitor) observe(name string, db *sql.DB) {
	if m.registry == nil {
		return
	}
	m.registry.MustRegister(sqlstats.NewStatsCollector(name, db))
}
