// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package mqtt

import "sync"

// A message captured by the mock client.
type Message struct {
	Topic   string
	Payload any
}

// Mock mqtt client that records published messages.
type MockClient struct {
	mu        sync.Mutex
	Messages  []Message
	Err       error
	connected bool
}

func (m *MockClient) Publish(topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, Message{Topic: topic, Payload: payload})
	return nil
}

func (m *MockClient) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return m.Err
}

func (m *MockClient) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

// Get a copy of the published messages.
func (m *MockClient) Published() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}
