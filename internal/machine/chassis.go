// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package machine

// Aggregated facts reported by the BMC collector for one server.
type ChassisInfo struct {
	// Memory as reported by the BMC. Vendors report a marketing GiB that
	// is not always an exact power of two.
	MemoryGiB int `json:"memory_gib"`
	// CPU identifier.
	CPU string `json:"cpu"`
	// Hardware model number.
	ModelNumber string `json:"model_number"`
}

const (
	bytesPerGiB = 1024 * 1024 * 1024
	bytesPerMB  = 1000 * 1000
)

// Build a Machine from chassis facts and the size of the smallest disk.
//
// Memory is converted from GiB to base-10 megabytes. Callers must have
// filtered removable media out of the disk probe already.
func FromChassis(info ChassisInfo, smallestDiskGB int) (Machine, error) {
	if info.MemoryGiB <= 0 {
		return Machine{}, &AdapterError{
			Fact:   "memory_gib",
			Value:  info.MemoryGiB,
			Reason: "memory must be positive",
		}
	}
	if smallestDiskGB <= 0 {
		return Machine{}, &AdapterError{
			Fact:   "smallest_disk_gb",
			Value:  smallestDiskGB,
			Reason: "disk size must be positive",
		}
	}
	memoryMB := int(int64(info.MemoryGiB) * bytesPerGiB / bytesPerMB)
	return Machine{
		MemoryMB: memoryMB,
		CPU:      info.CPU,
		DiskGB:   smallestDiskGB,
		Model:    info.ModelNumber,
	}, nil
}
