// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package nova

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/sapcc/go-bits/jobloop"
)

// What a sync did, by flavor name.
type SyncResult struct {
	Created   []string `json:"created,omitempty"`
	Recreated []string `json:"recreated,omitempty"`
	Deleted   []string `json:"deleted,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
	// Flavors with the name of a spec that were not created by us.
	Conflicts []string `json:"conflicts,omitempty"`
	// Managed flavors without a spec that were kept because pruning is off.
	Orphaned []string `json:"orphaned,omitempty"`
}

// Keeps one nova flavor per flavor spec.
type FlavorSyncer struct {
	api     NovaAPI
	catalog *flavor.Catalog
	conf    conf.NovaConfig
	monitor Monitor
	trigger chan struct{}
	// Only one sync at a time.
	mu sync.Mutex
}

func NewFlavorSyncer(api NovaAPI, catalog *flavor.Catalog, conf conf.NovaConfig, monitor Monitor) *FlavorSyncer {
	return &FlavorSyncer{
		api:     api,
		catalog: catalog,
		conf:    conf,
		monitor: monitor,
		trigger: make(chan struct{}, 1),
	}
}

// Sync the nova flavors with the current catalog.
//
// Nova flavors are immutable, so changed flavors are deleted and created
// again. Failures of single flavors do not stop the sync of the others.
func (s *FlavorSyncer) Sync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SyncResult
	existing, err := s.api.GetAllFlavors(ctx)
	if err != nil {
		s.monitor.syncs.WithLabelValues("error").Inc()
		return result, fmt.Errorf("failed to list nova flavors: %w", err)
	}
	existingByName := make(map[string]Flavor, len(existing))
	for _, f := range existing {
		if other, ok := existingByName[f.Name]; ok && other.Managed() && !f.Managed() {
			continue
		}
		existingByName[f.Name] = f
	}

	var errs []error
	specs := s.catalog.Flavors()
	wanted := make(map[string]bool, len(specs))
	for _, spec := range specs {
		wanted[spec.Name] = true
		desired := DesiredFlavor(spec)
		current, ok := existingByName[spec.Name]
		switch {
		case !ok:
			if _, err := s.api.CreateFlavor(ctx, desired); err != nil {
				errs = append(errs, err)
				continue
			}
			s.observe("create")
			result.Created = append(result.Created, spec.Name)
		case !current.Managed():
			slog.Warn("nova flavor exists but is not managed, skipping", "flavor", spec.Name, "id", current.ID)
			s.observe("conflict")
			result.Conflicts = append(result.Conflicts, spec.Name)
		case current.matches(desired):
			result.Unchanged = append(result.Unchanged, spec.Name)
		default:
			slog.Info("nova flavor differs from spec, recreating", "flavor", spec.Name, "id", current.ID)
			if err := s.api.DeleteFlavor(ctx, current.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			if _, err := s.api.CreateFlavor(ctx, desired); err != nil {
				errs = append(errs, err)
				continue
			}
			s.observe("recreate")
			result.Recreated = append(result.Recreated, spec.Name)
		}
	}

	for _, f := range existing {
		if wanted[f.Name] || !f.Managed() {
			continue
		}
		if !s.conf.Prune {
			result.Orphaned = append(result.Orphaned, f.Name)
			continue
		}
		if err := s.api.DeleteFlavor(ctx, f.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		s.observe("delete")
		result.Deleted = append(result.Deleted, f.Name)
	}
	slices.Sort(result.Orphaned)
	slices.Sort(result.Deleted)

	if err := errors.Join(errs...); err != nil {
		s.monitor.syncs.WithLabelValues("error").Inc()
		return result, err
	}
	s.monitor.syncs.WithLabelValues("success").Inc()
	slog.Info("synced nova flavors",
		"created", len(result.Created), "recreated", len(result.Recreated),
		"deleted", len(result.Deleted), "unchanged", len(result.Unchanged),
		"conflicts", len(result.Conflicts), "orphaned", len(result.Orphaned),
	)
	return result, nil
}

func (s *FlavorSyncer) observe(action string) {
	s.monitor.actions.WithLabelValues(action).Inc()
}

// Request a sync outside of the regular interval, e.g. after a reload.
func (s *FlavorSyncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
		// A sync is already pending.
	}
}

// Sync periodically until the context is cancelled.
func (s *FlavorSyncer) Run(ctx context.Context) {
	interval := time.Duration(s.conf.SyncIntervalSeconds) * time.Second
	for {
		if _, err := s.Sync(ctx); err != nil {
			slog.Error("failed to sync nova flavors", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		case <-time.After(jobloop.DefaultJitter(interval)):
		}
	}
}
