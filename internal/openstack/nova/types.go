// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package nova

import (
	"fmt"
	"maps"

	"github.com/cobaltcore-dev/flavor-matcher/internal/flavor"
)

// Extra spec marking flavors that are owned by the flavor matcher.
const ManagedExtraSpec = "flavor-matcher:managed"

// Nova flavor as returned by the flavors/detail endpoint.
type Flavor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	RAM         int               `json:"ram"`
	VCPUs       int               `json:"vcpus"`
	Disk        int               `json:"disk"`
	Description string            `json:"description,omitempty"`
	IsPublic    bool              `json:"os-flavor-access:is_public"`
	ExtraSpecs  map[string]string `json:"extra_specs,omitempty"`
}

// Check if the flavor was created by the flavor matcher.
func (f Flavor) Managed() bool {
	return f.ExtraSpecs[ManagedExtraSpec] == "true"
}

// Build the nova flavor for the given spec.
//
// Bare metal flavors request exactly one unit of the custom resource class
// of the node and zero of the standard resources, so placement only picks
// nodes of that class. RAM and disk are informational.
func DesiredFlavor(s flavor.Spec) Flavor {
	return Flavor{
		Name:        s.Name,
		RAM:         s.MemoryGB * 1024,
		VCPUs:       1,
		Disk:        s.DiskGB,
		Description: fmt.Sprintf("Bare metal flavor %s (%s, %d GB memory)", s.Name, s.CPU, s.MemoryGB),
		IsPublic:    true,
		ExtraSpecs: map[string]string{
			"resources:" + flavor.ResourceClass(s.Name): "1",
			"resources:VCPU":      "0",
			"resources:MEMORY_MB": "0",
			"resources:DISK_GB":   "0",
			ManagedExtraSpec:      "true",
		},
	}
}

// Check if the existing flavor is equal to the desired one.
// Only the extra specs managed here are compared.
func (f Flavor) matches(desired Flavor) bool {
	if f.RAM != desired.RAM || f.VCPUs != desired.VCPUs || f.Disk != desired.Disk {
		return false
	}
	for key, value := range desired.ExtraSpecs {
		if f.ExtraSpecs[key] != value {
			return false
		}
	}
	return true
}

func (f Flavor) clone() Flavor {
	f.ExtraSpecs = maps.Clone(f.ExtraSpecs)
	return f
}
