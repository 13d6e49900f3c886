// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package reloader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/fsnotify/fsnotify"
)

// Reloads the flavor catalog when the flavor directory changes.
type Reloader struct {
	dir      string
	catalog  *flavor.Catalog
	cooldown time.Duration
	monitor  Monitor

	mu        sync.Mutex
	callbacks []func([]flavor.Spec)
}

// Create a new reloader for the given directory. Changes are applied once
// the directory was quiet for the cooldown.
func New(dir string, catalog *flavor.Catalog, cooldown time.Duration, monitor Monitor) *Reloader {
	monitor.flavors.Set(float64(catalog.Len()))
	return &Reloader{dir: dir, catalog: catalog, cooldown: cooldown, monitor: monitor}
}

// Register a callback that runs after every successful reload.
func (r *Reloader) OnReload(callback func(specs []flavor.Spec)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, callback)
}

// Load the flavor directory and swap the catalog.
// On error the current catalog stays active.
func (r *Reloader) Reload() error {
	specs, err := flavor.LoadDir(r.dir)
	if err != nil {
		r.monitor.reloads.WithLabelValues("error").Inc()
		slog.Error("failed to reload flavors, keeping current catalog", "dir", r.dir, "err", err, "flavors", r.catalog.Len())
		return fmt.Errorf("failed to reload flavors: %w", err)
	}
	old := r.catalog.Swap(specs)
	r.monitor.reloads.WithLabelValues("success").Inc()
	r.monitor.flavors.Set(float64(len(specs)))
	r.monitor.lastReload.SetToCurrentTime()
	slog.Info("reloaded flavors", "dir", r.dir, "before", len(old), "after", len(specs))

	r.mu.Lock()
	callbacks := append([]func([]flavor.Spec){}, r.callbacks...)
	r.mu.Unlock()
	for _, callback := range callbacks {
		callback(r.catalog.Flavors())
	}
	return nil
}

// Watch the directory until the context is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}
	slog.Info("watching flavor directory", "dir", r.dir, "cooldown", r.cooldown)

	// Bursts of events, like a configmap update, result in a single reload.
	timer := time.NewTimer(r.cooldown)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			slog.Debug("flavor directory changed", "event", event.String())
			timer.Reset(r.cooldown)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("error watching flavor directory", "dir", r.dir, "err", err)
		case <-timer.C:
			// Errors are logged and counted in Reload.
			_ = r.Reload()
		}
	}
}
