// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package openstack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cobaltcore-dev/flavor-matcher/internal/keystone"
	"github.com/gophercloud/gophercloud/v2"
)

const (
	// Since 2.55 flavors have a description, since 2.61 the extra specs
	// are returned in the flavor details.
	NovaMicroversion = "2.61"
	// Since 1.81 the inspection inventory is served by ironic itself.
	IronicMicroversion = "1.81"
)

// Create a service client for nova with the endpoint from the keystone catalog.
func NovaClient(ctx context.Context, keystoneAPI keystone.KeystoneAPI, availability string) (*gophercloud.ServiceClient, error) {
	sc, err := serviceClient(ctx, keystoneAPI, availability, "compute")
	if err != nil {
		return nil, fmt.Errorf("failed to find nova endpoint: %w", err)
	}
	sc.Microversion = NovaMicroversion
	return sc, nil
}

// Create a service client for ironic with the endpoint from the keystone catalog.
func IronicClient(ctx context.Context, keystoneAPI keystone.KeystoneAPI, availability string) (*gophercloud.ServiceClient, error) {
	sc, err := serviceClient(ctx, keystoneAPI, availability, "baremetal")
	if err != nil {
		return nil, fmt.Errorf("failed to find ironic endpoint: %w", err)
	}
	// The ironic catalog entry usually points to the unversioned root.
	if !strings.HasSuffix(sc.Endpoint, "/v1/") {
		sc.ResourceBase = sc.Endpoint + "v1/"
	}
	sc.Microversion = IronicMicroversion
	return sc, nil
}

func serviceClient(ctx context.Context, keystoneAPI keystone.KeystoneAPI, availability, serviceType string) (*gophercloud.ServiceClient, error) {
	if err := keystoneAPI.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate keystone: %w", err)
	}
	if availability == "" {
		availability = keystoneAPI.Availability()
	}
	// Automatically fetch the endpoint from the keystone service catalog.
	url, err := keystoneAPI.FindEndpoint(availability, serviceType)
	if err != nil {
		return nil, err
	}
	url = gophercloud.NormalizeURL(url)
	slog.Info("using openstack endpoint", "type", serviceType, "url", url)
	return &gophercloud.ServiceClient{
		ProviderClient: keystoneAPI.Client(),
		Endpoint:       url,
		Type:           serviceType,
	}, nil
}
