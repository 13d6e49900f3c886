// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package nova

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cobaltcore-dev/flavor-matcher/internal/conf"
	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
	"github.com/cobaltcore-dev/flavor-matcher/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func flavorSpec(name string, memoryGB, diskGB int) flavor.Spec {
	return flavor.Spec{Name: name, MemoryGB: memoryGB, CPU: "AMD EPYC 9124", DiskGB: diskGB}
}

// In-memory nova.
type mockNovaAPI struct {
	flavors   map[string]Flavor
	nextID    int
	failNames map[string]bool
	calls     []string
}

func newMockNovaAPI(flavors ...Flavor) *mockNovaAPI {
	m := &mockNovaAPI{flavors: map[string]Flavor{}, failNames: map[string]bool{}}
	for _, f := range flavors {
		m.flavors[f.ID] = f
	}
	return m
}

func (m *mockNovaAPI) Init(ctx context.Context) error { return nil }

func (m *mockNovaAPI) GetAllFlavors(ctx context.Context) ([]Flavor, error) {
	var result []Flavor
	for _, f := range m.flavors {
		result = append(result, f)
	}
	return result, nil
}

func (m *mockNovaAPI) CreateFlavor(ctx context.Context, f Flavor) (Flavor, error) {
	m.calls = append(m.calls, "create "+f.Name)
	if m.failNames[f.Name] {
		return Flavor{}, errors.New("nova is unhappy")
	}
	m.nextID++
	f = f.clone()
	f.ID = "id-" + strconv.Itoa(m.nextID)
	m.flavors[f.ID] = f
	return f, nil
}

func (m *mockNovaAPI) DeleteFlavor(ctx context.Context, id string) error {
	m.calls = append(m.calls, "delete "+m.flavors[id].Name)
	delete(m.flavors, id)
	return nil
}

func (m *mockNovaAPI) byName(name string) (Flavor, bool) {
	for _, f := range m.flavors {
		if f.Name == name {
			return f, true
		}
	}
	return Flavor{}, false
}

func managed(id string, s flavor.Spec) Flavor {
	f := DesiredFlavor(s)
	f.ID = id
	return f
}

func newTestSyncer(api NovaAPI, prune bool, specs ...flavor.Spec) (*FlavorSyncer, Monitor) {
	monitor := NewNovaMonitor(monitoring.NewRegistry(conf.MonitoringConfig{}))
	catalog := flavor.NewCatalog(specs)
	return NewFlavorSyncer(api, catalog, conf.NovaConfig{Prune: prune, SyncIntervalSeconds: 3600}, monitor), monitor
}

func TestDesiredFlavor(t *testing.T) {
	f := DesiredFlavor(flavorSpec("gp1.large", 512, 960))
	if f.RAM != 512*1024 || f.Disk != 960 || f.VCPUs != 1 || !f.IsPublic {
		t.Errorf("unexpected flavor %+v", f)
	}
	expected := map[string]string{
		"resources:CUSTOM_GP1_LARGE": "1",
		"resources:VCPU":             "0",
		"resources:MEMORY_MB":        "0",
		"resources:DISK_GB":          "0",
		ManagedExtraSpec:             "true",
	}
	for key, value := range expected {
		if f.ExtraSpecs[key] != value {
			t.Errorf("expected extra spec %s=%s, got %q", key, value, f.ExtraSpecs[key])
		}
	}
	if !f.Managed() {
		t.Error("expected desired flavor to be managed")
	}
}

func TestFlavorSyncer_Sync(t *testing.T) {
	small := flavorSpec("gp1.small", 64, 480)
	medium := flavorSpec("gp1.medium", 128, 480)
	large := flavorSpec("gp1.large", 512, 960)
	oldLarge := flavorSpec("gp1.large", 256, 960)

	api := newMockNovaAPI(
		managed("1", small),
		managed("2", oldLarge),
		managed("3", flavorSpec("gp0.retired", 32, 100)),
		Flavor{ID: "4", Name: "gp1.medium", RAM: 1, VCPUs: 1, Disk: 1},
		Flavor{ID: "5", Name: "m1.tiny", RAM: 512, VCPUs: 1, Disk: 1},
	)
	syncer, monitor := newTestSyncer(api, true, small, medium, large, flavorSpec("gp1.xlarge", 1024, 960))

	result, err := syncer.Sync(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	check := func(name string, got []string, want string) {
		if strings.Join(got, ",") != want {
			t.Errorf("expected %s %q, got %v", name, want, got)
		}
	}
	check("created", result.Created, "gp1.xlarge")
	check("recreated", result.Recreated, "gp1.large")
	check("unchanged", result.Unchanged, "gp1.small")
	check("conflicts", result.Conflicts, "gp1.medium")
	check("deleted", result.Deleted, "gp0.retired")

	if f, ok := api.byName("gp1.large"); !ok || f.RAM != 512*1024 {
		t.Errorf("expected gp1.large to be recreated with new ram, got %+v", f)
	}
	if _, ok := api.byName("m1.tiny"); !ok {
		t.Error("expected unmanaged flavor to be kept")
	}
	if f, _ := api.byName("gp1.medium"); f.ID != "4" {
		t.Error("expected conflicting flavor to be left alone")
	}
	if got := testutil.ToFloat64(monitor.actions.WithLabelValues("recreate")); got != 1 {
		t.Errorf("expected 1 recreate, got %v", got)
	}

	// A second sync has nothing to do.
	api.calls = nil
	result, err = syncer.Sync(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(api.calls) != 0 || len(result.Unchanged) != 3 {
		t.Errorf("expected no changes, got calls %v and result %+v", api.calls, result)
	}
}

func TestFlavorSyncer_NoPrune(t *testing.T) {
	api := newMockNovaAPI(managed("1", flavorSpec("gp0.retired", 32, 100)))
	syncer, _ := newTestSyncer(api, false)

	result, err := syncer.Sync(t.Context())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Orphaned) != 1 || len(result.Deleted) != 0 {
		t.Errorf("expected orphan to be reported but kept, got %+v", result)
	}
	if _, ok := api.byName("gp0.retired"); !ok {
		t.Error("expected orphaned flavor to be kept")
	}
}

func TestFlavorSyncer_PartialFailure(t *testing.T) {
	api := newMockNovaAPI()
	api.failNames["broken"] = true
	syncer, monitor := newTestSyncer(api, false, flavorSpec("broken", 64, 100), flavorSpec("fine", 64, 100))

	result, err := syncer.Sync(t.Context())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(result.Created) != 1 || result.Created[0] != "fine" {
		t.Errorf("expected the other flavor to be created, got %+v", result)
	}
	if got := testutil.ToFloat64(monitor.syncs.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed sync, got %v", got)
	}
}

func TestFlavorSyncer_Run(t *testing.T) {
	api := newMockNovaAPI()
	syncer, monitor := newTestSyncer(api, false, flavorSpec("gp1.small", 64, 480))
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	syncer.Trigger()
	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(monitor.syncs.WithLabelValues("success")) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for triggered sync")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
