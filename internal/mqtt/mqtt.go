// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Client interface {
	Connect() error
	Publish(topic string, obj any) error
	Disconnect()
}

type client struct {
	conf conf.MQTTConfig
	// MQTT client to publish mqtt data.
	client mqtt.Client
	// Lock to prevent concurrent writes to the MQTT client.
	lock    *sync.Mutex
	monitor Monitor
}

func NewClientWithConfig(conf conf.MQTTConfig, monitor Monitor) Client {
	return &client{conf: conf, lock: &sync.Mutex{}, monitor: monitor}
}

// Called when the connection to the mqtt broker is lost.
// The paho client reconnects on its own.
func (t *client) onConnectionLost(_ mqtt.Client, err error) {
	slog.Error("lost connection to mqtt broker", "err", err)
}

// Called before each attempt to connect to the broker.
func (t *client) onConnectionAttempt(broker *url.URL, tlsCfg *tls.Config) *tls.Config {
	t.monitor.connectionAttempts.Inc()
	slog.Debug("connecting to mqtt broker", "broker", broker.Host)
	return tlsCfg
}

// Connect to the mqtt broker.
func (t *client) Connect() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.connect()
}

func (t *client) connect() error {
	if t.client != nil {
		return nil
	}

	slog.Info("connecting to mqtt broker at", "url", t.conf.URL)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.conf.URL)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectRetry(false)
	opts.SetAutoReconnect(true)
	if t.conf.Reconnect.RetryIntervalSeconds > 0 {
		opts.SetMaxReconnectInterval(time.Duration(t.conf.Reconnect.RetryIntervalSeconds) * time.Second)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(t.onConnectionLost)
	opts.SetConnectionAttemptHandler(t.onConnectionAttempt)
	//nolint:gosec // We don't care if the client id is cryptographically secure.
	opts.SetClientID(fmt.Sprintf("flavor-matcher-%d", rand.Intn(1_000_000)))
	opts.SetOrderMatters(false)
	opts.SetProtocolVersion(4)
	opts.SetUsername(t.conf.Username)
	opts.SetPassword(t.conf.Password)

	client := mqtt.NewClient(opts)
	if conn := client.Connect(); conn.Wait() && conn.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", conn.Error())
	}
	t.client = client
	slog.Info("connected to mqtt broker")
	return nil
}

// Publish the object as json to the given topic.
// Messages are retained so late subscribers get the latest state.
func (t *client) Publish(topic string, obj any) error {
	err := t.publish(topic, obj)
	t.monitor.observePublish(topic, err)
	if err != nil {
		return err
	}
	slog.Debug("published mqtt data", "topic", topic)
	return nil
}

func (t *client) publish(topic string, obj any) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	// Connect if we aren't already.
	if err := t.connect(); err != nil {
		return err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	pub := t.client.Publish(topic, 2, true, data)
	if !pub.WaitTimeout(10 * time.Second) {
		return errors.New("timed out publishing mqtt data")
	}
	return pub.Error()
}

// Disconnect from the mqtt broker.
func (t *client) Disconnect() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.client == nil {
		return
	}
	client := t.client
	t.client = nil
	// Waits up to one second for pending work.
	client.Disconnect(1000)
	slog.Info("disconnected from mqtt broker")
}
