// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cobaltcore-dev/flavor-matcher/internal/classification"
	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
	"github.com/cobaltcore-dev/flavor-matcher/internal/openstack/ironic"
	"golang.org/x/sync/errgroup"
)

// Outcome of enrolling one ironic node.
type Result struct {
	Node string `json:"node"`
	UUID string `json:"uuid"`
	// Set if the node could be classified at all.
	Decision *classification.Decision `json:"decision,omitempty"`
	// Resource class of the node after enrollment.
	ResourceClass string `json:"resource_class,omitempty"`
	// Whether the resource class was changed by this enrollment.
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// Classifies ironic nodes by their inspection inventory.
type Enroller struct {
	api        ironic.IronicAPI
	classifier *classification.Classifier
	conf       conf.IronicConfig
	monitor    Monitor
}

func NewEnroller(api ironic.IronicAPI, classifier *classification.Classifier, conf conf.IronicConfig, monitor Monitor) *Enroller {
	return &Enroller{api: api, classifier: classifier, conf: conf, monitor: monitor}
}

// Enroll the node with the given uuid or name.
func (e *Enroller) EnrollNode(ctx context.Context, id string) (Result, error) {
	node, err := e.api.GetNode(ctx, id)
	if err != nil {
		e.monitor.enrollments.WithLabelValues("error").Inc()
		return Result{Node: id, Error: err.Error()}, err
	}
	return e.enroll(ctx, node)
}

func (e *Enroller) enroll(ctx context.Context, node ironic.Node) (Result, error) {
	result := Result{Node: node.DisplayName(), UUID: node.UUID, ResourceClass: node.ResourceClass}
	fail := func(label string, err error) (Result, error) {
		e.monitor.enrollments.WithLabelValues(label).Inc()
		result.Error = err.Error()
		return result, err
	}

	inv, err := e.api.GetInventory(ctx, node.UUID)
	if err != nil {
		return fail("error", err)
	}
	m, err := machine.FromInventory(inv)
	if err != nil {
		return fail("invalid_inventory", fmt.Errorf("node %s: %w", node.DisplayName(), err))
	}
	decision, err := e.classifier.Classify(ctx, node.UUID, m)
	result.Decision = &decision
	if err != nil {
		return fail("unclassifiable", fmt.Errorf("node %s: %w", node.DisplayName(), err))
	}

	log := slog.With("node", node.DisplayName(), "flavor", decision.Flavor)
	switch {
	case node.ResourceClass == decision.Flavor:
		log.Info("node already has the resource class of its flavor")
	case !e.conf.ApplyResourceClass:
		log.Info("not applying resource class", "current", node.ResourceClass)
	default:
		if err := e.api.SetResourceClass(ctx, node.UUID, decision.Flavor); err != nil {
			return fail("error", err)
		}
		e.monitor.resourceClassUpdates.Inc()
		result.ResourceClass = decision.Flavor
		result.Updated = true
	}
	e.monitor.enrollments.WithLabelValues("success").Inc()
	return result, nil
}

// Enroll all nodes in the configured provision states.
//
// A failing node does not stop the enrollment of the others. The results
// are in the order ironic returned the nodes, the error joins all per-node
// failures.
func (e *Enroller) EnrollAll(ctx context.Context) ([]Result, error) {
	nodes, err := e.api.ListNodes(ctx, e.conf.EnrollStates)
	if err != nil {
		return nil, err
	}
	slog.Info("enrolling ironic nodes", "count", len(nodes), "states", e.conf.EnrollStates)

	results := make([]Result, len(nodes))
	errs := make([]error, len(nodes))
	var g errgroup.Group
	g.SetLimit(max(e.conf.EnrollConcurrency, 1))
	for i, node := range nodes {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Node: node.DisplayName(), UUID: node.UUID, Error: ctx.Err().Error()}
				errs[i] = ctx.Err()
				return nil
			}
			results[i], errs[i] = e.enroll(ctx, node)
			if errs[i] != nil {
				slog.Error("failed to enroll node", "node", node.DisplayName(), "err", errs[i])
			}
			return nil
		})
	}
	// Goroutines never return errors, failures are collected per node.
	_ = g.Wait()
	return results, errors.Join(errs...)
}
