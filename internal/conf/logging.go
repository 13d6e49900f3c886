// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package conf

import (
	"io"
	"log/slog"
	"os"
)

// Conform to the slog.Leveler interface.
func (c LoggingConfig) Level() slog.Level {
	switch c.LevelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Create a log handler writing to w in the configured format.
func (c LoggingConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c}
	switch c.Format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// Set the structured logger as given in the config.
func (c LoggingConfig) SetDefaultLogger() {
	slog.SetDefault(slog.New(c.Handler(os.Stdout)))
	slog.Info("logging: set default logger", "level", c.LevelStr, "format", c.Format)
}
