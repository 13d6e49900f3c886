// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package containers

import (
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
)

// Throwaway postgres database running in docker.
type PostgresContainer struct {
	pool     *dockertest.Pool
	resource *dockertest.Resource
}

func (c PostgresContainer) GetPort() int {
	port, err := strconv.Atoi(c.resource.GetPort("5432/tcp"))
	if err != nil {
		panic(err)
	}
	return port
}

// Start the container and wait until postgres accepts connections.
// The container is purged when the test finishes.
func (c *PostgresContainer) Init(t *testing.T) {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not construct pool: %s", err)
	}
	c.pool = pool
	if err = pool.Client.Ping(); err != nil {
		t.Fatalf("could not connect to Docker: %s", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "17",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=secret",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		t.Fatalf("could not start resource: %s", err)
	}
	c.resource = resource
	t.Cleanup(c.Close)
	if err := c.resource.Expire(60); err != nil {
		t.Fatalf("could not set expiration: %s", err)
	}
	psqlInfo := fmt.Sprintf(
		"host=localhost port=%s user=postgres password=secret dbname=postgres sslmode=disable",
		resource.GetPort("5432/tcp"),
	)
	sqlDB, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		t.Fatalf("could not connect to sql db: %s", err)
	}
	defer sqlDB.Close()
	if err = pool.Retry(sqlDB.Ping); err != nil {
		t.Fatalf("postgres db is not ready in time: %s", err)
	}
}

func (c *PostgresContainer) Close() {
	if c.pool == nil || c.resource == nil {
		return
	}
	if err := c.pool.Purge(c.resource); err != nil {
		fmt.Printf("could not purge resource: %s\n", err)
	}
	c.resource = nil
}
