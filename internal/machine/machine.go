// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package machine

import "fmt"

// Hardware facts of a single candidate server, reduced to what the flavor
// classification needs. Machines are values and are never mutated after
// construction.
type Machine struct {
	// Installed memory in megabytes.
	MemoryMB int `json:"memory_mb"`
	// CPU identifier as used by the flavor specifications.
	CPU string `json:"cpu"`
	// Size of the smallest non-removable disk in base-10 gigabytes.
	// The smallest disk is used because the root disk is the constraint.
	DiskGB int `json:"disk_gb"`
	// Free-form hardware model, e.g. the baseboard model.
	Model string `json:"model"`
}

// Installed memory in whole gigabytes, rounded down.
func (m Machine) MemoryGB() int {
	return m.MemoryMB / 1024
}

func (m Machine) String() string {
	return fmt.Sprintf(
		"Machine(memory_mb=%d, cpu=%q, disk_gb=%d, model=%q)",
		m.MemoryMB, m.CPU, m.DiskGB, m.Model,
	)
}
