// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package nova

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/keystone"
	"github.com/cobaltcore-dev/flavor-matcher/internal/openstack"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/flavors"
	"github.com/prometheus/client_golang/prometheus"
)

type NovaAPI interface {
	// Init the nova API.
	Init(ctx context.Context) error
	// Get all nova flavors, including private ones.
	GetAllFlavors(ctx context.Context) ([]Flavor, error)
	// Create the flavor with its extra specs.
	CreateFlavor(ctx context.Context, f Flavor) (Flavor, error)
	// Delete the flavor with the given id.
	DeleteFlavor(ctx context.Context, id string) error
}

// API for OpenStack Nova.
type novaAPI struct {
	// Monitor to track the api.
	mon Monitor
	// Keystone api to authenticate against.
	keystoneAPI keystone.KeystoneAPI
	// Nova configuration.
	conf conf.NovaConfig
	// Authenticated OpenStack service client.
	sc *gophercloud.ServiceClient
}

func NewNovaAPI(mon Monitor, k keystone.KeystoneAPI, conf conf.NovaConfig) NovaAPI {
	return &novaAPI{mon: mon, keystoneAPI: k, conf: conf}
}

// Init the nova API.
func (api *novaAPI) Init(ctx context.Context) error {
	sc, err := openstack.NovaClient(ctx, api.keystoneAPI, api.conf.Availability)
	if err != nil {
		return err
	}
	api.sc = sc
	return nil
}

func (api *novaAPI) timer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(api.mon.requestTimer.WithLabelValues(operation))
}

// Get all Nova flavors.
func (api *novaAPI) GetAllFlavors(ctx context.Context) ([]Flavor, error) {
	slog.Info("fetching nova flavors")
	defer api.timer("list_flavors").ObserveDuration()

	lo := flavors.ListOpts{AccessType: flavors.AllAccess} // Also private flavors.
	pages, err := flavors.ListDetail(api.sc, lo).AllPages(ctx)
	if err != nil {
		return nil, err
	}
	// Parse the json data into our custom model.
	var data = &struct {
		Flavors []Flavor `json:"flavors"`
	}{}
	if err := pages.(flavors.FlavorPage).ExtractInto(data); err != nil {
		return nil, err
	}
	slog.Info("fetched nova flavors", "count", len(data.Flavors))
	return data.Flavors, nil
}

// Create the flavor and set its extra specs.
func (api *novaAPI) CreateFlavor(ctx context.Context, f Flavor) (Flavor, error) {
	defer api.timer("create_flavor").ObserveDuration()

	disk := f.Disk
	isPublic := f.IsPublic
	opts := flavors.CreateOpts{
		Name:        f.Name,
		RAM:         f.RAM,
		VCPUs:       f.VCPUs,
		Disk:        &disk,
		IsPublic:    &isPublic,
		Description: f.Description,
	}
	created, err := flavors.Create(ctx, api.sc, opts).Extract()
	if err != nil {
		return Flavor{}, fmt.Errorf("failed to create flavor %s: %w", f.Name, err)
	}
	result := f.clone()
	result.ID = created.ID
	if len(f.ExtraSpecs) > 0 {
		specs := flavors.ExtraSpecsOpts(f.ExtraSpecs)
		if _, err := flavors.CreateExtraSpecs(ctx, api.sc, created.ID, specs).Extract(); err != nil {
			// A flavor without its resource class would match any node.
			if delErr := flavors.Delete(ctx, api.sc, created.ID).ExtractErr(); delErr != nil {
				slog.Error("failed to clean up flavor without extra specs", "flavor", f.Name, "id", created.ID, "err", delErr)
			}
			return Flavor{}, fmt.Errorf("failed to set extra specs of flavor %s: %w", f.Name, err)
		}
	}
	slog.Info("created nova flavor", "flavor", f.Name, "id", created.ID)
	return result, nil
}

// Delete the flavor with the given id.
func (api *novaAPI) DeleteFlavor(ctx context.Context, id string) error {
	defer api.timer("delete_flavor").ObserveDuration()
	if err := flavors.Delete(ctx, api.sc, id).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete flavor %s: %w", id, err)
	}
	slog.Info("deleted nova flavor", "id", id)
	return nil
}
