// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"os"
	"strings"
	"testing"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/cobaltcore-dev/flavor-matcher/testlib/mqtt/containers"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPublish_Unreachable(t *testing.T) {
	registry := monitoring.NewRegistry(conf.MonitoringConfig{})
	monitor := NewMQTTMonitor(registry)
	c := NewClientWithConfig(conf.MQTTConfig{URL: "tcp://127.0.0.1:1"}, monitor)

	if err := c.Publish("flavor-matcher/decisions", map[string]string{"flavor": "gp1.small"}); err == nil {
		t.Fatal("expected error when the broker is unreachable")
	}
	if got := testutil.ToFloat64(monitor.connectionAttempts); got != 1 {
		t.Errorf("expected 1 connection attempt, got %v", got)
	}
	expected := `
# HELP flavor_matcher_mqtt_published_messages_total Total number of messages published to the MQTT broker
# TYPE flavor_matcher_mqtt_published_messages_total counter
flavor_matcher_mqtt_published_messages_total{result="error",topic="flavor-matcher/decisions"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "flavor_matcher_mqtt_published_messages_total"); err != nil {
		t.Error(err)
	}
	// Disconnecting without a connection is a no-op.
	c.Disconnect()
}

func TestPublish(t *testing.T) {
	if os.Getenv("VERNEMQ_CONTAINER") != "1" {
		t.Skip("skipping test; set VERNEMQ_CONTAINER=1 to run")
	}

	container := containers.VernemqContainer{}
	container.Init(t)
	defer container.Close()
	registry := monitoring.NewRegistry(conf.MonitoringConfig{})
	c := NewClientWithConfig(conf.MQTTConfig{URL: "tcp://localhost:" + container.GetPort()}, NewMQTTMonitor(registry))
	if err := c.Connect(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := c.Publish("flavor-matcher/test", map[string]string{"key": "value"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	c.Disconnect()
}
