// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggingConfig_Level(t *testing.T) {
	tests := []struct {
		levelStr string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default case
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			config := LoggingConfig{LevelStr: tt.levelStr}
			level := config.Level()
			if level != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, level)
			}
		})
	}
}

func TestLoggingConfig_Handler(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{"json", `"level":"WARN","msg":"flavors are semantically identical","flavor":"b"`},
		{"text", `level=WARN msg="flavors are semantically identical" flavor=b`},
		{"", `level=WARN msg="flavors are semantically identical" flavor=b`},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			config := LoggingConfig{LevelStr: "warn", Format: tt.format}
			logger := slog.New(config.Handler(&buf))
			logger.Info("filtered out")
			logger.Warn("flavors are semantically identical", "flavor", "b")

			output := buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("expected output to contain %q, got %q", tt.expected, output)
			}
			if strings.Contains(output, "filtered out") {
				t.Errorf("expected info message to be filtered, got %q", output)
			}
		})
	}
}
