// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"errors"
	"fmt"
	"strings"
)

// Check if the configuration is valid.
func (c *Config) Validate() error {
	// Check the keystone URL.
	if c.KeystoneConfig.URL != "" && !strings.Contains(c.KeystoneConfig.URL, "/v3") {
		return fmt.Errorf(
			"expected v3 Keystone URL, but got %s",
			c.KeystoneConfig.URL,
		)
	}
	// OpenStack urls should end without a slash.
	for _, url := range []string{
		c.KeystoneConfig.URL,
	} {
		if strings.HasSuffix(url, "/") {
			return fmt.Errorf("openstack url %s should not end with a slash", url)
		}
	}
	if c.FlavorsConfig.Dir == "" {
		return errors.New("flavor directory must not be empty")
	}
	if c.ReloadCooldownSeconds < 0 {
		return fmt.Errorf("reload cooldown must not be negative, got %d", c.ReloadCooldownSeconds)
	}
	if c.SyncIntervalSeconds < 0 {
		return fmt.Errorf("nova sync interval must not be negative, got %d", c.SyncIntervalSeconds)
	}
	if c.EnrollConcurrency < 0 {
		return fmt.Errorf("ironic enroll concurrency must not be negative, got %d", c.EnrollConcurrency)
	}
	for _, port := range []int{c.APIConfig.Port, c.MonitoringConfig.Port} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
	}
	return nil
}

// Check if an openstack cloud is configured.
func (c *Config) HasKeystone() bool {
	return c.KeystoneConfig.URL != ""
}
