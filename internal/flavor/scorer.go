// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package flavor

import (
	"fmt"
	"strings"

	"github.com/cobaltcore-dev/flavor-matcher/internal/machine"
)

// A single eligibility check of a machine against a flavor.
type check struct {
	// Name of the check, reported when it rejects a flavor.
	name string
	// Returns an empty string if the machine passes, otherwise the reason.
	run func(m machine.Machine, s Spec, req Requirements) string
}

// Eligibility checks in the order they are evaluated.
// A flavor is eligible only if every check passes.
var checks = []check{
	{name: "cpu", run: checkCPU},
	{name: "memory", run: checkMemory},
	{name: "disk", run: checkDisk},
	{name: "model", run: checkModel},
}

func checkCPU(m machine.Machine, s Spec, _ Requirements) string {
	if m.CPU == s.CPU {
		return ""
	}
	return fmt.Sprintf("machine cpu %q is not %q", m.CPU, s.CPU)
}

func checkMemory(m machine.Machine, _ Spec, req Requirements) string {
	if m.MemoryGB() >= req.MemoryGB {
		return ""
	}
	return fmt.Sprintf("machine has %d GB memory, needs %d GB", m.MemoryGB(), req.MemoryGB)
}

func checkDisk(m machine.Machine, _ Spec, req Requirements) string {
	if m.DiskGB >= req.DiskGB {
		return ""
	}
	return fmt.Sprintf("machine has %d GB disk, needs %d GB", m.DiskGB, req.DiskGB)
}

func checkModel(m machine.Machine, s Spec, _ Requirements) string {
	if s.MatchesModel(m.Model) {
		return ""
	}
	return fmt.Sprintf("machine model %q matches none of [%s]", m.Model, strings.Join(s.ModelPatterns, ", "))
}

// Score the machine against the flavor. Zero means the flavor is not
// eligible, otherwise the score is the memory of the flavor in GB.
func Score(m machine.Machine, s Spec) int {
	req := s.Resolve(m.Model)
	for _, c := range checks {
		if c.run(m, s, req) != "" {
			return 0
		}
	}
	return s.MemoryGB
}

// Why a check rejected a flavor.
type Rejection struct {
	Check  string `json:"check"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string { return r.Check + ": " + r.Reason }

// Explain why the machine is not eligible for the flavor.
// Returns nil if the flavor is eligible.
func Explain(m machine.Machine, s Spec) []Rejection {
	req := s.Resolve(m.Model)
	var rejections []Rejection
	for _, c := range checks {
		if reason := c.run(m, s, req); reason != "" {
			rejections = append(rejections, Rejection{Check: c.name, Reason: reason})
		}
	}
	return rejections
}
