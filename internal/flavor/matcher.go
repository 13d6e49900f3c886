// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package flavor

import "github.com/cobaltcore-dev/flavor-matcher/internal/machine"

// Matches machines against the flavors of a catalog.
// Safe for concurrent use; every call works on one catalog snapshot.
type Matcher struct {
	catalog *Catalog
}

// Create a new matcher over the given catalog.
func NewMatcher(catalog *Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// The catalog this matcher reads from.
func (m *Matcher) Catalog() *Catalog {
	return m.catalog
}

// Outcome of matching one machine against one catalog snapshot.
type Result struct {
	// All eligible flavors in catalog order.
	Eligible []Spec
	// The chosen flavor, only valid if Classified is true.
	Best Spec
	// False if no flavor is eligible.
	Classified bool
	// Number of flavors the machine was matched against.
	FlavorCount int
}

// Get all flavors the machine is eligible for, in catalog order.
func (m *Matcher) Match(mach machine.Machine) []Spec {
	return Match(m.catalog.Flavors(), mach)
}

// Pick the best flavor for the machine. Returns false if the machine is
// not eligible for any flavor.
func (m *Matcher) PickBest(mach machine.Machine) (Spec, bool) {
	return PickBest(m.catalog.Flavors(), mach)
}

// Match and pick the best flavor using a single catalog snapshot.
func (m *Matcher) Classify(mach machine.Machine) Result {
	specs := m.catalog.Flavors()
	eligible := Match(specs, mach)
	best, ok := best(eligible)
	return Result{
		Eligible:    eligible,
		Best:        best,
		Classified:  ok,
		FlavorCount: len(specs),
	}
}

// Get all specs the machine is eligible for, keeping their order.
func Match(specs []Spec, mach machine.Machine) []Spec {
	var eligible []Spec
	for _, s := range specs {
		if Score(mach, s) > 0 {
			eligible = append(eligible, s)
		}
	}
	return eligible
}

// Pick the eligible spec with the most memory. Ties are broken by the
// lexicographically smallest name, so the result does not depend on the
// order of the specs.
func PickBest(specs []Spec, mach machine.Machine) (Spec, bool) {
	return best(Match(specs, mach))
}

func best(eligible []Spec) (Spec, bool) {
	if len(eligible) == 0 {
		return Spec{}, false
	}
	winner := eligible[0]
	for _, s := range eligible[1:] {
		if s.MemoryGB > winner.MemoryGB || (s.MemoryGB == winner.MemoryGB && s.Name < winner.Name) {
			winner = s
		}
	}
	return winner, true
}
