// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/go-gorp/gorp"
	_ "github.com/lib/pq"
	"github.com/sapcc/go-bits/easypg"
)

// Wrapper around gorp.DbMap that adds some convenience functions.
type DB struct {
	*gorp.DbMap
	DBConfig conf.DBConfig
}

type Table interface {
	TableName() string
}

// Create a new postgres database and wait until it is connected.
func NewPostgresDB(ctx context.Context, c conf.DBConfig, monitor Monitor) (DB, error) {
	stripYaml := func(s string) string { return strings.ReplaceAll(s, "\n", "") }
	dbURL, err := easypg.URLFrom(easypg.URLParts{
		HostName:          stripYaml(c.Host),
		Port:              strconv.Itoa(c.Port),
		UserName:          stripYaml(c.User),
		Password:          stripYaml(c.Password),
		ConnectionOptions: "sslmode=disable",
		DatabaseName:      stripYaml(c.Database),
	})
	if err != nil {
		return DB{}, fmt.Errorf("failed to build database url: %w", err)
	}
	slog.Info("connecting to database", "host", c.Host, "port", c.Port, "database", c.Database)
	sqlDB, err := sql.Open("postgres", dbURL.String())
	if err != nil {
		return DB{}, fmt.Errorf("failed to open database: %w", err)
	}

	maxRetries := max(c.Reconnect.MaxRetries, 1)
	retryInterval := time.Duration(c.Reconnect.RetryIntervalSeconds) * time.Second
	for i := range maxRetries {
		monitor.connectionAttempts.Inc()
		err = sqlDB.PingContext(ctx)
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			return DB{}, fmt.Errorf("giving up connecting to database after %d attempts: %w", maxRetries, err)
		}
		slog.Error("failed to connect to database, retrying...", "error", err)
		select {
		case <-ctx.Done():
			return DB{}, errors.Join(err, ctx.Err())
		case <-time.After(retryInterval):
		}
	}

	sqlDB.SetMaxOpenConns(16)
	monitor.observe(c.Database, sqlDB)
	dbMap := &gorp.DbMap{Db: sqlDB, Dialect: gorp.PostgresDialect{}}
	slog.Info("database is ready")
	return DB{DBConfig: c, DbMap: dbMap}, nil
}

// Adds missing functionality to gorp.DbMap which creates the given tables.
func (d *DB) CreateTable(table ...*gorp.TableMap) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, t := range table {
		slog.Info("creating table", "table", t.TableName)
		sql := t.SqlForCreate(true) // true means to add IF NOT EXISTS
		if _, err := tx.Exec(sql); err != nil {
			return errors.Join(fmt.Errorf("failed to create table %s: %w", t.TableName, err), tx.Rollback())
		}
	}
	return tx.Commit()
}

// Adds a Model table to the database.
func (d *DB) AddTable(t Table) *gorp.TableMap {
	slog.Info("adding table", "table", t.TableName())
	return d.AddTableWithName(t, t.TableName())
}

// Convenience function to the database connection.
func (d *DB) Close() {
	if err := d.DbMap.Db.Close(); err != nil {
		slog.Error("failed to close database connection", "error", err)
	}
}
