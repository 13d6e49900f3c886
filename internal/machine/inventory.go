// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package machine

import "math"

// Subset of the hardware inventory that the ironic inspector stores for
// each node after inspection.
type Inventory struct {
	CPU          InventoryCPU          `json:"cpu"`
	Memory       InventoryMemory       `json:"memory"`
	Disks        []Disk                `json:"disks"`
	SystemVendor InventorySystemVendor `json:"system_vendor"`
}

type InventoryCPU struct {
	ModelName    string `json:"model_name"`
	Architecture string `json:"architecture"`
	Count        int    `json:"count"`
}

type InventoryMemory struct {
	// Physical memory in megabytes as seen by the ramdisk.
	PhysicalMB int `json:"physical_mb"`
}

type InventorySystemVendor struct {
	ProductName  string `json:"product_name"`
	Manufacturer string `json:"manufacturer"`
}

// A block device found during inspection.
type Disk struct {
	Name string `json:"name"`
	// Size in bytes.
	Size int64 `json:"size"`
	// Transport, e.g. "sas", "nvme" or "usb".
	Transport string `json:"tran"`
}

// Removable media such as virtual media or usb sticks.
func (d Disk) Removable() bool {
	return d.Transport == "usb"
}

// Size of the smallest non-removable disk in base-10 gigabytes, or 0 if
// there is none.
func SmallestDiskGB(disks []Disk) int {
	var smallest int64 = math.MaxInt64
	for _, disk := range disks {
		if disk.Size <= 0 || disk.Removable() {
			continue
		}
		smallest = min(smallest, disk.Size)
	}
	if smallest == math.MaxInt64 {
		return 0
	}
	return int(smallest / 1_000_000_000)
}

// Build a Machine from an ironic inspection inventory.
func FromInventory(inv Inventory) (Machine, error) {
	if inv.Memory.PhysicalMB <= 0 {
		return Machine{}, &AdapterError{
			Fact:   "memory.physical_mb",
			Value:  inv.Memory.PhysicalMB,
			Reason: "memory must be positive",
		}
	}
	diskGB := SmallestDiskGB(inv.Disks)
	if diskGB <= 0 {
		return Machine{}, &AdapterError{
			Fact:   "disks",
			Value:  diskGB,
			Reason: "no non-removable disk of at least 1 GB found",
		}
	}
	return Machine{
		MemoryMB: inv.Memory.PhysicalMB,
		CPU:      inv.CPU.ModelName,
		DiskGB:   diskGB,
		Model:    inv.SystemVendor.ProductName,
	}, nil
}
