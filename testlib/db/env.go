// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"log/slog"
	"os"
	"testing"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/db"
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/cobaltcore-dev/flavor-matcher/testlib/db/containers"
)

// Set up a database for the test.
//
// To run tests faster, the default is running with sqlite. Set
// POSTGRES_CONTAINER=1 to run against a real postgres container.
func SetupDBEnv(t *testing.T) *db.DB {
	t.Helper()
	if os.Getenv("POSTGRES_CONTAINER") != "1" {
		slog.Debug("using sqlite")
		return NewSqliteTestDB(t)
	}
	slog.Info("using real postgres container")
	container := containers.PostgresContainer{}
	container.Init(t)
	registry := monitoring.NewRegistry(conf.MonitoringConfig{})
	d, err := db.NewPostgresDB(t.Context(), conf.DBConfig{
		Host:      "localhost",
		Port:      container.GetPort(),
		User:      "postgres",
		Password:  "secret",
		Database:  "postgres",
		Reconnect: conf.DBReconnectConfig{MaxRetries: 10, RetryIntervalSeconds: 1},
	}, db.NewDBMonitor(registry))
	if err != nil {
		t.Fatalf("failed to connect to postgres container: %v", err)
	}
	t.Cleanup(d.Close)
	return &d
}
