// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package keystone

import (
	"context"

	"github.com/gophercloud/gophercloud/v2"
)

// Keystone stand-in that points every service at the same url,
// usually the url of an httptest server.
type MockKeystoneClient struct {
	Url string
}

func (m *MockKeystoneClient) Authenticate(ctx context.Context) error {
	return nil
}

func (m *MockKeystoneClient) Client() *gophercloud.ProviderClient {
	return &gophercloud.ProviderClient{}
}

func (m *MockKeystoneClient) FindEndpoint(availability, serviceType string) (string, error) {
	return m.Url, nil
}

func (m *MockKeystoneClient) Availability() string {
	return "public"
}
