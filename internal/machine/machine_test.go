// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"errors"
	"testing"
)

func TestMachine_MemoryGB(t *testing.T) {
	tests := []struct {
		memoryMB int
		expected int
	}{
		{memoryMB: 3072, expected: 3},
		{memoryMB: 512, expected: 0},
		{memoryMB: 2048, expected: 2},
		{memoryMB: 2047, expected: 1},
		{memoryMB: 0, expected: 0},
		{memoryMB: 131072, expected: 128},
	}
	for _, tt := range tests {
		m := Machine{MemoryMB: tt.memoryMB, CPU: "x86", DiskGB: 50}
		if got := m.MemoryGB(); got != tt.expected {
			t.Errorf("memory_mb=%d: expected memory_gb %d, got %d", tt.memoryMB, tt.expected, got)
		}
	}
}

func TestMachine_MemoryGBFloor(t *testing.T) {
	for k := range 8 {
		for _, r := range []int{0, 1, 511, 1023} {
			m := Machine{MemoryMB: 1024*k + r}
			if m.MemoryGB() != k {
				t.Fatalf("memory_mb=%d: expected %d, got %d", m.MemoryMB, k, m.MemoryGB())
			}
			if m.MemoryGB()*1024 > m.MemoryMB {
				t.Fatalf("memory_gb*1024 exceeds memory_mb for %v", m)
			}
		}
	}
}

func TestFromChassis(t *testing.T) {
	info := ChassisInfo{MemoryGiB: 128, CPU: "AMD EPYC 9254", ModelNumber: "PowerEdge R7615"}
	m, err := FromChassis(info, 480)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// 128 * 1024^3 / 10^6 = 137438.953472
	if m.MemoryMB != 137438 {
		t.Errorf("expected memory_mb 137438, got %d", m.MemoryMB)
	}
	if m.MemoryGB() != 134 {
		t.Errorf("expected memory_gb 134, got %d", m.MemoryGB())
	}
	if m.DiskGB != 480 {
		t.Errorf("expected disk_gb 480, got %d", m.DiskGB)
	}
	if m.CPU != info.CPU || m.Model != info.ModelNumber {
		t.Errorf("expected cpu and model to be passed through, got %v", m)
	}
}

func TestFromChassis_InvalidFacts(t *testing.T) {
	tests := []struct {
		name   string
		info   ChassisInfo
		diskGB int
		fact   string
	}{
		{"zero memory", ChassisInfo{MemoryGiB: 0, CPU: "x86"}, 100, "memory_gib"},
		{"negative memory", ChassisInfo{MemoryGiB: -1, CPU: "x86"}, 100, "memory_gib"},
		{"zero disk", ChassisInfo{MemoryGiB: 64, CPU: "x86"}, 0, "smallest_disk_gb"},
		{"negative disk", ChassisInfo{MemoryGiB: 64, CPU: "x86"}, -5, "smallest_disk_gb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromChassis(tt.info, tt.diskGB)
			var adapterErr *AdapterError
			if !errors.As(err, &adapterErr) {
				t.Fatalf("expected adapter error, got %v", err)
			}
			if adapterErr.Fact != tt.fact {
				t.Errorf("expected fact %s, got %s", tt.fact, adapterErr.Fact)
			}
		})
	}
}

func TestSmallestDiskGB(t *testing.T) {
	disks := []Disk{
		{Name: "/dev/sda", Size: 960_197_124_096, Transport: "sas"},
		{Name: "/dev/sdb", Size: 480_103_981_056, Transport: "sas"},
		{Name: "/dev/sdc", Size: 32_010_928_128, Transport: "usb"},
		{Name: "/dev/sr0", Size: 0},
	}
	if got := SmallestDiskGB(disks); got != 480 {
		t.Errorf("expected 480, got %d", got)
	}
	if got := SmallestDiskGB(nil); got != 0 {
		t.Errorf("expected 0 for no disks, got %d", got)
	}
	if got := SmallestDiskGB([]Disk{{Size: 16_000_000_000, Transport: "usb"}}); got != 0 {
		t.Errorf("expected 0 when only removable disks exist, got %d", got)
	}
}

func TestFromInventory(t *testing.T) {
	inv := Inventory{
		CPU:          InventoryCPU{ModelName: "AMD EPYC 9254 24-Core Processor", Architecture: "x86_64", Count: 48},
		Memory:       InventoryMemory{PhysicalMB: 196608},
		Disks:        []Disk{{Name: "/dev/nvme0n1", Size: 1_920_383_410_176, Transport: "nvme"}, {Name: "/dev/sda", Size: 480_103_981_056}},
		SystemVendor: InventorySystemVendor{ProductName: "PowerEdge R7615 (SKU=0AF7;ModelName=PowerEdge R7615)", Manufacturer: "Dell Inc."},
	}
	m, err := FromInventory(inv)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	expected := Machine{
		MemoryMB: 196608,
		CPU:      "AMD EPYC 9254 24-Core Processor",
		DiskGB:   480,
		Model:    "PowerEdge R7615 (SKU=0AF7;ModelName=PowerEdge R7615)",
	}
	if m != expected {
		t.Errorf("expected %v, got %v", expected, m)
	}

	inv.Disks = nil
	if _, err := FromInventory(inv); err == nil {
		t.Error("expected error for inventory without disks")
	}
	inv.Memory.PhysicalMB = 0
	if _, err := FromInventory(inv); err == nil {
		t.Error("expected error for inventory without memory")
	}
}
