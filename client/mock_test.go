// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"sync"

	"github.com/pb33f/lasso/connection"
	"github.com/pb33f/lasso/frame"
)

// mockConnection is a scriptable transport for client tests: Send
// records outbound bytes (optionally failing per a scripted error
// list), Read blocks on an in-memory feed channel.
type mockConnection struct {
	mu       sync.Mutex
	sent     [][]byte
	sendErrs []error

	feed      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	connectCalls    int
	disconnectCalls int
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		feed:   make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

func (m *mockConnection) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	return nil
}

func (m *mockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sendErrs) > 0 {
		err := m.sendErrs[0]
		m.sendErrs = m.sendErrs[1:]
		if err != nil {
			return err
		}
	}

	m.sent = append(m.sent, append([]byte(nil), data...))
	return nil
}

func (m *mockConnection) Read(max int) ([]byte, error) {
	select {
	case data, ok := <-m.feed:
		if !ok {
			return nil, nil
		}
		if len(data) > max {
			data = data[:max]
		}
		return data, nil
	case <-m.closed:
		return nil, nil
	}
}

func (m *mockConnection) Disconnect() error {
	m.mu.Lock()
	m.disconnectCalls++
	m.mu.Unlock()

	m.closeOnce.Do(func() {
		close(m.closed)
	})
	return nil
}

// deliver feeds an encoded frame to the read loop.
func (m *mockConnection) deliver(f *frame.Frame) {
	m.feed <- frame.Marshal(f)
}

// sentFrames decodes every recorded outbound write.
func (m *mockConnection) sentFrames() []*frame.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	var frames []*frame.Frame
	for _, data := range m.sent {
		if f, err := frame.Unmarshal(data); err == nil {
			frames = append(frames, f)
		}
	}
	return frames
}

func (m *mockConnection) scriptSendErrors(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErrs = append(m.sendErrs, errs...)
}

// mockProvider always hands back the same scripted connection.
type mockProvider struct {
	conn connection.Connection
}

func (p *mockProvider) Get(host string, port int) connection.Connection {
	return p.conn
}
