// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import "os"

// Environment variable overriding the flavor directory.
const FlavorsDirEnv = "FLAVORS_DIR"

// Flavor directory used when neither config nor environment set one.
const DefaultFlavorsDir = "/etc/understack_flavors/"

// Retrieve the value of the environment variable named by the key.
// If the variable is empty, it returns the provided default value.
func Getenv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (c *Config) applyEnv() {
	c.FlavorsConfig.Dir = Getenv(FlavorsDirEnv, c.FlavorsConfig.Dir)
}

func (c *Config) applyDefaults() {
	if c.FlavorsConfig.Dir == "" {
		c.FlavorsConfig.Dir = DefaultFlavorsDir
	}
	if c.ReloadCooldownSeconds == 0 {
		c.ReloadCooldownSeconds = 2
	}
	if c.MonitoringConfig.Port == 0 {
		c.MonitoringConfig.Port = 2112
	}
	if c.APIConfig.Port == 0 {
		c.APIConfig.Port = 8080
	}
	if c.DBConfig.Port == 0 {
		c.DBConfig.Port = 5432
	}
	if c.DBConfig.Reconnect.MaxRetries == 0 {
		c.DBConfig.Reconnect.MaxRetries = 10
	}
	if c.DBConfig.Reconnect.RetryIntervalSeconds == 0 {
		c.DBConfig.Reconnect.RetryIntervalSeconds = 1
	}
	if c.MQTTConfig.Topic == "" {
		c.MQTTConfig.Topic = "flavor-matcher/decisions"
	}
	if c.MQTTConfig.Reconnect.MaxRetries == 0 {
		c.MQTTConfig.Reconnect.MaxRetries = 10
	}
	if c.MQTTConfig.Reconnect.RetryIntervalSeconds == 0 {
		c.MQTTConfig.Reconnect.RetryIntervalSeconds = 5
	}
	if c.KeystoneConfig.Availability == "" {
		c.KeystoneConfig.Availability = "public"
	}
	if c.NovaConfig.Availability == "" {
		c.NovaConfig.Availability = c.KeystoneConfig.Availability
	}
	if c.SyncIntervalSeconds == 0 {
		c.SyncIntervalSeconds = 3600
	}
	if c.IronicConfig.Availability == "" {
		c.IronicConfig.Availability = c.KeystoneConfig.Availability
	}
	if len(c.EnrollStates) == 0 {
		c.EnrollStates = []string{"manageable"}
	}
	if c.EnrollConcurrency == 0 {
		c.EnrollConcurrency = 4
	}
}
