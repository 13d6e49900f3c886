// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/cobaltcore-dev/flavor-matcher/internal/db"
	"github.com/go-gorp/gorp"
	_ "github.com/mattn/go-sqlite3"
)

// Create a database backed by a sqlite file in the test's temp dir.
func NewSqliteTestDB(t *testing.T) *db.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	d := &db.DB{DbMap: &gorp.DbMap{Db: sqlDB, Dialect: gorp.SqliteDialect{}}}
	if os.Getenv("GORP_TRACE") == "1" {
		d.TraceOn("[gorp]", log.New(os.Stdout, "flavor-matcher:", log.Lmicroseconds))
	}
	t.Cleanup(d.Close)
	return d
}
