// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package ironic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/keystone"
	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
	"github.com/cobaltcore-dev/flavor-matcher/internal/openstack"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/baremetal/v1/nodes"
	"github.com/prometheus/client_golang/prometheus"
)

type IronicAPI interface {
	// Init the ironic API.
	Init(ctx context.Context) error
	// List all nodes in one of the given provision states.
	ListNodes(ctx context.Context, states []string) ([]Node, error)
	// Get a single node by uuid or name.
	GetNode(ctx context.Context, id string) (Node, error)
	// Get the inspection inventory of the node.
	GetInventory(ctx context.Context, id string) (machine.Inventory, error)
	// Set the resource class of the node.
	SetResourceClass(ctx context.Context, id, resourceClass string) error
}

// API for OpenStack Ironic.
type ironicAPI struct {
	mon         Monitor
	keystoneAPI keystone.KeystoneAPI
	conf        conf.IronicConfig
	sc          *gophercloud.ServiceClient
}

func NewIronicAPI(mon Monitor, k keystone.KeystoneAPI, conf conf.IronicConfig) IronicAPI {
	return &ironicAPI{mon: mon, keystoneAPI: k, conf: conf}
}

// Init the ironic API.
func (api *ironicAPI) Init(ctx context.Context) error {
	sc, err := openstack.IronicClient(ctx, api.keystoneAPI, api.conf.Availability)
	if err != nil {
		return err
	}
	api.sc = sc
	return nil
}

func (api *ironicAPI) timer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(api.mon.requestTimer.WithLabelValues(operation))
}

func fromNode(n nodes.Node) Node {
	return Node{
		UUID:           n.UUID,
		Name:           n.Name,
		ProvisionState: n.ProvisionState,
		ResourceClass:  n.ResourceClass,
	}
}

// List all nodes in one of the given provision states.
// Ironic filters by a single state, so each state is a separate request.
func (api *ironicAPI) ListNodes(ctx context.Context, states []string) ([]Node, error) {
	defer api.timer("list_nodes").ObserveDuration()

	var result []Node
	for _, state := range states {
		lo := nodes.ListOpts{ProvisionState: nodes.ProvisionState(state)}
		pages, err := nodes.ListDetail(api.sc, lo).AllPages(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s nodes: %w", state, err)
		}
		extracted, err := nodes.ExtractNodes(pages)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s nodes: %w", state, err)
		}
		for _, n := range extracted {
			result = append(result, fromNode(n))
		}
	}
	slog.Info("fetched ironic nodes", "states", states, "count", len(result))
	return result, nil
}

// Get a single node by uuid or name.
func (api *ironicAPI) GetNode(ctx context.Context, id string) (Node, error) {
	defer api.timer("get_node").ObserveDuration()
	n, err := nodes.Get(ctx, api.sc, id).Extract()
	if err != nil {
		return Node{}, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return fromNode(*n), nil
}

// Get the inspection inventory of the node.
func (api *ironicAPI) GetInventory(ctx context.Context, id string) (machine.Inventory, error) {
	defer api.timer("get_inventory").ObserveDuration()
	// Only the parts of the inventory we understand are decoded.
	var body struct {
		Inventory machine.Inventory `json:"inventory"`
	}
	url := api.sc.ServiceURL("nodes", id, "inventory")
	if _, err := api.sc.Get(ctx, url, &body, nil); err != nil {
		return machine.Inventory{}, fmt.Errorf("failed to get inventory of node %s: %w", id, err)
	}
	return body.Inventory, nil
}

// Set the resource class of the node.
func (api *ironicAPI) SetResourceClass(ctx context.Context, id, resourceClass string) error {
	defer api.timer("set_resource_class").ObserveDuration()
	opts := nodes.UpdateOpts{
		nodes.UpdateOperation{
			Op:    nodes.ReplaceOp,
			Path:  "/resource_class",
			Value: resourceClass,
		},
	}
	if _, err := nodes.Update(ctx, api.sc, id, opts).Extract(); err != nil {
		return fmt.Errorf("failed to set resource class of node %s: %w", id, err)
	}
	slog.Info("set resource class of ironic node", "node", id, "resource_class", resourceClass)
	return nil
}
