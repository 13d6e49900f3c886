// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package ironic

// Bare metal node, reduced to what enrollment needs.
type Node struct {
	UUID           string `json:"uuid"`
	Name           string `json:"name"`
	ProvisionState string `json:"provision_state"`
	ResourceClass  string `json:"resource_class"`
}

// Name if set, otherwise the uuid.
func (n Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.UUID
}
