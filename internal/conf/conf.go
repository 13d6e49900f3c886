// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
)

// Configuration for structured logging.
type LoggingConfig struct {
	// The log level to use (debug, info, warn, error).
	LevelStr string `json:"level"`
	// The log format to use (json, text).
	Format string `json:"format"`
}

type DBReconnectConfig struct {
	// The interval between reconnection attempts on startup.
	RetryIntervalSeconds int `json:"retryIntervalSeconds"`
	// The maximum number of connection attempts before giving up.
	MaxRetries int `json:"maxRetries"`
}

// Database configuration for the classification history.
// The history is disabled if no host is configured.
type DBConfig struct {
	Host      string            `json:"host"`
	Port      int               `json:"port"`
	Database  string            `json:"database"`
	User      string            `json:"user"`
	Password  string            `json:"password"`
	Reconnect DBReconnectConfig `json:"reconnect"`
}

// Configuration for the monitoring module.
type MonitoringConfig struct {
	// The labels to add to all metrics.
	Labels map[string]string `json:"labels"`

	// The port to expose the metrics on.
	Port int `json:"port"`
}

type MQTTReconnectConfig struct {
	// The interval between reconnection attempts on connection loss.
	RetryIntervalSeconds int `json:"retryIntervalSeconds"`

	// The maximum number of reconnection attempts on connection loss before panic.
	MaxRetries int `json:"maxRetries"`
}

// Configuration for the mqtt client. Classification decisions are only
// published if a broker URL is configured.
type MQTTConfig struct {
	// The URL of the MQTT broker to use for mqtt.
	URL string `json:"url"`
	// Credentials for the MQTT broker.
	Username  string              `json:"username"`
	Password  string              `json:"password"`
	Reconnect MQTTReconnectConfig `json:"reconnect"`
	// The topic under which classification decisions are published.
	Topic string `json:"topic"`
}

// Configuration for the api port.
type APIConfig struct {
	// The port to expose the API on.
	Port int `json:"port"`
	// If request bodies should be logged out.
	// This feature is intended for debugging purposes only.
	LogRequestBodies bool `json:"logRequestBodies"`
}

// Configuration for the keystone authentication.
type KeystoneConfig struct {
	// The URL of the keystone service.
	URL string `json:"url"`
	// Availability of the keystone service, such as "public", "internal", or "admin".
	Availability string `json:"availability"`
	// The OpenStack username (OS_USERNAME in openstack cli).
	OSUsername string `json:"username"`
	// The OpenStack password (OS_PASSWORD in openstack cli).
	OSPassword string `json:"password"`
	// The OpenStack project name (OS_PROJECT_NAME in openstack cli).
	OSProjectName string `json:"projectName"`
	// The OpenStack user domain name (OS_USER_DOMAIN_NAME in openstack cli).
	OSUserDomainName string `json:"userDomainName"`
	// The OpenStack project domain name (OS_PROJECT_DOMAIN_NAME in openstack cli).
	OSProjectDomainName string `json:"projectDomainName"`
}

// Configuration of the flavor specs.
type FlavorsConfig struct {
	// The directory with the flavor yaml files.
	// Overridden by the FLAVORS_DIR environment variable.
	Dir string `json:"dir"`
	// How long the directory must be quiet before the flavors are reloaded.
	ReloadCooldownSeconds int `json:"reloadCooldownSeconds"`
}

// Configuration of the nova flavor sync.
type NovaConfig struct {
	// Availability of the nova endpoint, defaults to the keystone availability.
	Availability string `json:"availability"`
	// Interval between two full syncs.
	SyncIntervalSeconds int `json:"syncIntervalSeconds"`
	// If managed nova flavors without a spec should be deleted.
	Prune bool `json:"prune"`
}

// Configuration of the ironic node enrollment.
type IronicConfig struct {
	// Availability of the ironic endpoint, defaults to the keystone availability.
	Availability string `json:"availability"`
	// If the resource class of enrolled nodes should be set to the flavor.
	ApplyResourceClass bool `json:"applyResourceClass"`
	// Provision states of the nodes to enroll.
	EnrollStates []string `json:"enrollStates"`
	// Number of nodes enrolled in parallel.
	EnrollConcurrency int `json:"enrollConcurrency"`
}

// Configuration for the flavor matcher.
type Config struct {
	LoggingConfig    `json:"logging"`
	DBConfig         `json:"db"`
	MonitoringConfig `json:"monitoring"`
	MQTTConfig       `json:"mqtt"`
	APIConfig        `json:"api"`
	KeystoneConfig   `json:"keystone"`
	FlavorsConfig    `json:"flavors"`
	NovaConfig       `json:"nova"`
	IronicConfig     `json:"ironic"`
}

// Paths of the config files, variables for testing.
var (
	configPath  = "/etc/config/conf.json"
	secretsPath = "/etc/secrets/secrets.json"
)

// Create a new configuration from the default config json file.
//
// This will read two files:
//   - /etc/config/conf.json
//   - /etc/secrets/secrets.json
//
// The values read from secrets.json will override the values in conf.json.
// Missing files are treated as empty, so the cli tasks work without any
// config mounted. Defaults and environment overrides are applied afterwards.
func GetConfigOrDie() Config {
	// Note: We need to read the config as a raw map first, to avoid golang
	// unmarshalling default values for the fields.

	// Read the base config from the configmap (not including secrets).
	cmConf, err := readRawConfig(configPath)
	if err != nil {
		panic(err)
	}
	// Read the secrets config from the kubernetes secret.
	secretConf, err := readRawConfig(secretsPath)
	if err != nil {
		panic(err)
	}
	c, err := newConfigFromMaps(cmConf, secretConf)
	if err != nil {
		panic(err)
	}
	c.applyEnv()
	c.applyDefaults()
	return c
}

func newConfigFromMaps(base, override map[string]any) (Config, error) {
	// Merge the base config with the override config.
	mergedConf := mergeMaps(base, override)
	// Marshal again, and then unmarshal into the config struct.
	mergedBytes, err := json.Marshal(mergedConf)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := json.Unmarshal(mergedBytes, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Read the json as a map from the given file path.
func readRawConfig(filepath string) (map[string]any, error) {
	file, err := os.Open(filepath)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return readRawConfigFromBytes(bytes)
}

func readRawConfigFromBytes(data []byte) (map[string]any, error) {
	var conf map[string]any
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, err
	}
	if conf == nil {
		conf = map[string]any{}
	}
	return conf, nil
}

// mergeMaps recursively overrides dst with src (in-place)
func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	result := dst
	for k, v := range src {
		if v == nil {
			// If src value is nil, skip override
			continue
		}
		if dstVal, ok := dst[k]; ok {
			// If both are maps, merge recursively
			dstMap, dstIsMap := dstVal.(map[string]any)
			srcMap, srcIsMap := v.(map[string]any)
			if dstIsMap && srcIsMap {
				result[k] = mergeMaps(dstMap, srcMap)
				continue
			}
		}
		// Otherwise, override
		result[k] = v
	}
	return result
}
