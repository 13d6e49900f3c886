// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package enrollment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cobaltcore-dev/flavor-matcher/internal/classification"
	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/cobaltcore-dev/flavor-matcher/internal/openstack/ironic"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockIronicAPI struct {
	mu            sync.Mutex
	nodes         []ironic.Node
	inventories   map[string]machine.Inventory
	resourceClass map[string]string
	failInventory map[string]bool
	listedStates  []string
}

func (m *mockIronicAPI) Init(ctx context.Context) error { return nil }

func (m *mockIronicAPI) ListNodes(ctx context.Context, states []string) ([]ironic.Node, error) {
	m.listedStates = states
	return m.nodes, nil
}

func (m *mockIronicAPI) GetNode(ctx context.Context, id string) (ironic.Node, error) {
	for _, n := range m.nodes {
		if n.UUID == id || n.Name == id {
			return n, nil
		}
	}
	return ironic.Node{}, errors.New("node not found")
}

func (m *mockIronicAPI) GetInventory(ctx context.Context, id string) (machine.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInventory[id] {
		return machine.Inventory{}, errors.New("inventory unavailable")
	}
	return m.inventories[id], nil
}

func (m *mockIronicAPI) SetResourceClass(ctx context.Context, id, resourceClass string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resourceClass[id] = resourceClass
	return nil
}

func inventory(memoryMB int, cpu string, diskBytes int64) machine.Inventory {
	return machine.Inventory{
		CPU:    machine.InventoryCPU{ModelName: cpu},
		Memory: machine.InventoryMemory{PhysicalMB: memoryMB},
		Disks: []machine.Disk{
			{Name: "/dev/sda", Size: diskBytes, Transport: "sas"},
			{Name: "/dev/sdb", Size: 8_000_000_000, Transport: "usb"},
		},
		SystemVendor: machine.InventorySystemVendor{ProductName: "PowerEdge R7615"},
	}
}

func newTestEnroller(api ironic.IronicAPI, apply bool) (*Enroller, Monitor) {
	catalog := flavor.NewCatalog([]flavor.Spec{
		{Name: "gp1.small", MemoryGB: 64, CPU: "AMD EPYC 9124", DiskGB: 400},
		{Name: "gp1.large", MemoryGB: 256, CPU: "AMD EPYC 9124", DiskGB: 400},
	})
	registry := monitoring.NewRegistry(conf.MonitoringConfig{})
	classifier := classification.NewClassifier(flavor.NewMatcher(catalog), classification.NewClassificationMonitor(registry))
	monitor := NewEnrollmentMonitor(registry)
	c := conf.IronicConfig{ApplyResourceClass: apply, EnrollStates: []string{"manageable"}, EnrollConcurrency: 2}
	return NewEnroller(api, classifier, c, monitor), monitor
}

func newMockIronicAPI() *mockIronicAPI {
	return &mockIronicAPI{
		nodes: []ironic.Node{
			{UUID: "uuid-1", Name: "small-1"},
			{UUID: "uuid-2", Name: "large-1", ResourceClass: "gp1.large"},
			{UUID: "uuid-3", Name: "tiny-1"},
			{UUID: "uuid-4", Name: "broken-1"},
		},
		inventories: map[string]machine.Inventory{
			"uuid-1": inventory(98304, "AMD EPYC 9124", 480_000_000_000),
			"uuid-2": inventory(262144, "AMD EPYC 9124", 960_000_000_000),
			"uuid-3": inventory(16384, "AMD EPYC 9124", 480_000_000_000),
		},
		resourceClass: map[string]string{},
		failInventory: map[string]bool{"uuid-4": true},
	}
}

func TestEnroller_EnrollNode(t *testing.T) {
	api := newMockIronicAPI()
	enroller, monitor := newTestEnroller(api, true)

	result, err := enroller.EnrollNode(t.Context(), "small-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Decision == nil || result.Decision.Flavor != "gp1.small" {
		t.Fatalf("expected gp1.small, got %+v", result.Decision)
	}
	if result.Decision.Source != "uuid-1" {
		t.Errorf("expected the node uuid as source, got %s", result.Decision.Source)
	}
	if !result.Updated || api.resourceClass["uuid-1"] != "gp1.small" {
		t.Errorf("expected resource class to be set, got %+v", result)
	}
	if got := testutil.ToFloat64(monitor.resourceClassUpdates); got != 1 {
		t.Errorf("expected 1 resource class update, got %v", got)
	}
}

func TestEnroller_EnrollNodeUnchanged(t *testing.T) {
	api := newMockIronicAPI()
	enroller, _ := newTestEnroller(api, true)

	result, err := enroller.EnrollNode(t.Context(), "uuid-2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Updated || len(api.resourceClass) != 0 {
		t.Errorf("expected no update for a node that already has its resource class, got %+v", result)
	}
}

func TestEnroller_EnrollNodeDryRun(t *testing.T) {
	api := newMockIronicAPI()
	enroller, _ := newTestEnroller(api, false)

	result, err := enroller.EnrollNode(t.Context(), "uuid-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Updated || result.ResourceClass != "" || len(api.resourceClass) != 0 {
		t.Errorf("expected resource class to be left alone, got %+v", result)
	}
}

func TestEnroller_EnrollNodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		target error
		label  string
	}{
		{"unknown node", "missing", nil, "error"},
		{"unclassifiable", "uuid-3", classification.ErrUnclassifiable, "unclassifiable"},
		{"inventory unavailable", "uuid-4", nil, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newMockIronicAPI()
			enroller, monitor := newTestEnroller(api, true)
			result, err := enroller.EnrollNode(t.Context(), tt.id)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
			if result.Error == "" {
				t.Error("expected the error in the result")
			}
			if got := testutil.ToFloat64(monitor.enrollments.WithLabelValues(tt.label)); got != 1 {
				t.Errorf("expected 1 %s enrollment, got %v", tt.label, got)
			}
		})
	}
}

func TestEnroller_EnrollNodeInvalidInventory(t *testing.T) {
	api := newMockIronicAPI()
	api.inventories["uuid-1"] = machine.Inventory{}
	enroller, _ := newTestEnroller(api, true)

	_, err := enroller.EnrollNode(t.Context(), "uuid-1")
	var adapterErr *machine.AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("expected adapter error, got %v", err)
	}
}

func TestEnroller_EnrollAll(t *testing.T) {
	api := newMockIronicAPI()
	enroller, _ := newTestEnroller(api, true)

	results, err := enroller.EnrollAll(t.Context())
	if err == nil {
		t.Fatal("expected joined error for the failing nodes")
	}
	if !errors.Is(err, classification.ErrUnclassifiable) {
		t.Errorf("expected the unclassifiable node in the error, got %v", err)
	}
	if strings.Join(api.listedStates, ",") != "manageable" {
		t.Errorf("expected nodes in the configured states, got %v", api.listedStates)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, expected := range []struct {
		node  string
		fails bool
	}{
		{"small-1", false}, {"large-1", false}, {"tiny-1", true}, {"broken-1", true},
	} {
		if results[i].Node != expected.node {
			t.Errorf("expected result %d for %s, got %s", i, expected.node, results[i].Node)
		}
		if (results[i].Error != "") != expected.fails {
			t.Errorf("unexpected error state for %s: %q", expected.node, results[i].Error)
		}
	}
	if api.resourceClass["uuid-1"] != "gp1.small" {
		t.Errorf("expected small-1 to be enrolled, got %v", api.resourceClass)
	}
}
