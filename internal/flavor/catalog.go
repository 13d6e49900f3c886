// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package flavor

import (
	"slices"
	"strings"
	"sync/atomic"
)

// Holds the currently active flavor specs.
//
// The specs are an immutable snapshot that is replaced as a whole, so
// readers never observe a partially updated catalog.
type Catalog struct {
	flavors atomic.Pointer[[]Spec]
}

// Create a new catalog with the given specs.
func NewCatalog(specs []Spec) *Catalog {
	c := &Catalog{}
	c.Swap(specs)
	return c
}

func snapshot(specs []Spec) *[]Spec {
	cloned := slices.Clone(specs)
	slices.SortStableFunc(cloned, func(a, b Spec) int { return strings.Compare(a.Name, b.Name) })
	return &cloned
}

// Get the current snapshot of specs, sorted by name.
// The returned slice must not be modified.
func (c *Catalog) Flavors() []Spec {
	if specs := c.flavors.Load(); specs != nil {
		return *specs
	}
	return nil
}

// Number of specs in the current snapshot.
func (c *Catalog) Len() int {
	return len(c.Flavors())
}

// Look up a spec by name.
func (c *Catalog) Get(name string) (Spec, bool) {
	specs := c.Flavors()
	i, ok := slices.BinarySearchFunc(specs, name, func(s Spec, name string) int {
		return strings.Compare(s.Name, name)
	})
	if !ok {
		return Spec{}, false
	}
	return specs[i], true
}

// Atomically replace the specs and return the previous snapshot.
func (c *Catalog) Swap(specs []Spec) []Spec {
	old := c.flavors.Swap(snapshot(specs))
	if old == nil {
		return nil
	}
	return *old
}
