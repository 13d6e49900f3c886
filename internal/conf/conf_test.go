// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func withConfigPaths(t *testing.T, config, secrets string) {
	t.Helper()
	oldConfig, oldSecrets := configPath, secretsPath
	configPath, secretsPath = config, secrets
	t.Cleanup(func() { configPath, secretsPath = oldConfig, oldSecrets })
}

func TestGetConfigOrDie(t *testing.T) {
	config := createTempConfigFile(t, `
{
  "logging": {"level": "debug", "format": "json"},
  "monitoring": {"port": 2112, "labels": {"github_repo": "flavor-matcher"}},
  "keystone": {"url": "http://keystone:5000/v3", "username": "matcher", "password": "placeholder"},
  "flavors": {"dir": "/flavors", "reloadCooldownSeconds": 5},
  "nova": {"prune": true},
  "ironic": {"availability": "internal", "enrollStates": ["manageable", "inspected"]}
}`)
	secrets := createTempConfigFile(t, `{"keystone": {"password": "secret"}, "db": {"host": "postgres", "password": "secret"}}`)
	withConfigPaths(t, config, secrets)
	t.Setenv(FlavorsDirEnv, "")

	c := GetConfigOrDie()
	if c.LevelStr != "debug" || c.Format != "json" {
		t.Errorf("unexpected logging config %+v", c.LoggingConfig)
	}
	if c.MonitoringConfig.Labels["github_repo"] != "flavor-matcher" {
		t.Errorf("unexpected labels %v", c.MonitoringConfig.Labels)
	}
	if c.KeystoneConfig.OSUsername != "matcher" || c.KeystoneConfig.OSPassword != "secret" {
		t.Errorf("expected secrets to override config, got %+v", c.KeystoneConfig)
	}
	if c.DBConfig.Host != "postgres" || c.DBConfig.Port != 5432 {
		t.Errorf("unexpected db config %+v", c.DBConfig)
	}
	if c.FlavorsConfig.Dir != "/flavors" || c.ReloadCooldownSeconds != 5 {
		t.Errorf("unexpected flavors config %+v", c.FlavorsConfig)
	}
	if !c.Prune || c.NovaConfig.Availability != "public" || c.SyncIntervalSeconds != 3600 {
		t.Errorf("unexpected nova config %+v", c.NovaConfig)
	}
	if c.IronicConfig.Availability != "internal" || len(c.EnrollStates) != 2 || c.EnrollConcurrency != 4 {
		t.Errorf("unexpected ironic config %+v", c.IronicConfig)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestGetConfigOrDie_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	withConfigPaths(t, filepath.Join(dir, "conf.json"), filepath.Join(dir, "secrets.json"))
	t.Setenv(FlavorsDirEnv, "")

	c := GetConfigOrDie()
	if c.FlavorsConfig.Dir != DefaultFlavorsDir {
		t.Errorf("expected default flavor dir, got %q", c.FlavorsConfig.Dir)
	}
	if c.APIConfig.Port != 8080 || c.MonitoringConfig.Port != 2112 {
		t.Errorf("unexpected default ports %d and %d", c.APIConfig.Port, c.MonitoringConfig.Port)
	}
	if c.HasKeystone() {
		t.Error("expected no keystone to be configured")
	}
}

func TestGetConfigOrDie_FlavorsDirEnv(t *testing.T) {
	config := createTempConfigFile(t, `{"flavors": {"dir": "/from/config"}}`)
	withConfigPaths(t, config, filepath.Join(t.TempDir(), "secrets.json"))
	t.Setenv(FlavorsDirEnv, "/from/env")

	if c := GetConfigOrDie(); c.FlavorsConfig.Dir != "/from/env" {
		t.Errorf("expected environment to win, got %q", c.FlavorsConfig.Dir)
	}
}

func TestGetConfigOrDie_InvalidJSON(t *testing.T) {
	config := createTempConfigFile(t, `{"logging": `)
	withConfigPaths(t, config, filepath.Join(t.TempDir(), "secrets.json"))
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("The code did not panic")
		}
	}()
	GetConfigOrDie()
}

func TestMergeMaps(t *testing.T) {
	dst := map[string]any{
		"a": 1,
		"nested": map[string]any{
			"keep":     "x",
			"override": "old",
		},
	}
	src := map[string]any{
		"b":    2,
		"skip": nil,
		"nested": map[string]any{
			"override": "new",
		},
	}
	merged := mergeMaps(dst, src)
	nested := merged["nested"].(map[string]any)
	if merged["a"] != 1 || merged["b"] != 2 || nested["keep"] != "x" || nested["override"] != "new" {
		t.Errorf("unexpected merge result %v", merged)
	}
	if _, ok := merged["skip"]; ok {
		t.Error("expected nil values to be skipped")
	}
	if got := mergeMaps(nil, map[string]any{"a": 1}); got["a"] != 1 {
		t.Errorf("expected merge into nil map, got %v", got)
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("FLAVOR_MATCHER_TEST_ENV", "value")
	if got := Getenv("FLAVOR_MATCHER_TEST_ENV", "default"); got != "value" {
		t.Errorf("expected value, got %s", got)
	}
	if got := Getenv("FLAVOR_MATCHER_TEST_ENV_UNSET", "default"); got != "default" {
		t.Errorf("expected default, got %s", got)
	}
}
