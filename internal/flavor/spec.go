// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package flavor

import "strings"

// Pattern that matches every hardware model.
const WildcardPattern = "*"

// Declarative description of a bare metal flavor as written by operators.
// Specs are loaded once and must not be modified afterwards.
type Spec struct {
	// Unique name, also the result of the classification.
	Name string `json:"name"`
	// Required memory in gigabytes.
	MemoryGB int `json:"memory_gb"`
	// Required CPU identifier, compared with exact string equality.
	CPU string `json:"cpu"`
	// Minimum root disk size in base-10 gigabytes.
	DiskGB int `json:"disk_gb"`
	// Case-insensitive substrings of which at least one must be contained
	// in the machine model. Empty means no model constraint.
	ModelPatterns []string `json:"model,omitempty"`
	// Model specific thresholds in declaration order.
	BaseboardOverrides []BaseboardOverride `json:"baseboard,omitempty"`
}

// Adjusts the numeric thresholds of a spec for machines whose model
// contains Key. Unset fields inherit the value of the spec.
type BaseboardOverride struct {
	Key      string `json:"key"`
	MemoryGB *int   `json:"memory_gb,omitempty"`
	DiskGB   *int   `json:"disk_gb,omitempty"`
}

// Numeric thresholds of a spec after override resolution.
type Requirements struct {
	MemoryGB int
	DiskGB   int
	// Key of the override that was applied, empty if none.
	Override string
}

// Resolve the thresholds that apply to a machine with the given model.
// The first override in declaration order whose key is contained in the
// model wins.
func (s Spec) Resolve(model string) Requirements {
	req := Requirements{MemoryGB: s.MemoryGB, DiskGB: s.DiskGB}
	lowerModel := strings.ToLower(model)
	for _, o := range s.BaseboardOverrides {
		if !strings.Contains(lowerModel, strings.ToLower(o.Key)) {
			continue
		}
		if o.MemoryGB != nil {
			req.MemoryGB = *o.MemoryGB
		}
		if o.DiskGB != nil {
			req.DiskGB = *o.DiskGB
		}
		req.Override = o.Key
		break
	}
	return req
}

// Check if the model satisfies the model patterns of this spec.
func (s Spec) MatchesModel(model string) bool {
	if len(s.ModelPatterns) == 0 {
		return true
	}
	lowerModel := strings.ToLower(model)
	for _, pattern := range s.ModelPatterns {
		if pattern == WildcardPattern {
			return true
		}
		if strings.Contains(lowerModel, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// Placement resource class of the given ironic resource class, which is
// normalized the same way nova does it for ironic nodes.
func ResourceClass(name string) string {
	var b strings.Builder
	b.WriteString("CUSTOM_")
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
