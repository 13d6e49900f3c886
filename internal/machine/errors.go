// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package machine

import "fmt"

// Returned when a hardware fact is absent or out of range, so that no
// Machine can be built from it.
type AdapterError struct {
	// Name of the offending fact, e.g. "memory_gib".
	Fact string
	// The value that was rejected.
	Value int
	// Human readable reason.
	Reason string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("invalid hardware fact %s=%d: %s", e.Fact, e.Value, e.Reason)
}
