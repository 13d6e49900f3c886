// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

type Monitor struct {
	connectionAttempts prometheus.Counter
	published          *prometheus.CounterVec
}

func NewMQTTMonitor(registry *monitoring.Registry) Monitor {
	connectionAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flavor_matcher_mqtt_connection_attempts_total",
		Help: "Total number of attempts to connect to the MQTT broker",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flavor_matcher_mqtt_published_messages_total",
		Help: "Total number of messages published to the MQTT broker",
	}, []string{"topic", "result"})
	registry.MustRegister(connectionAttempts, published)
	return Monitor{
		connectionAttempts: connectionAttempts,
		published:          published,
	}
}

func (m Monitor) observePublish(topic string, err error) {
	if m.published == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(topic, result).Inc()
}
