// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package connection

import (
	"fmt"
	"sync"
	"time"
)

// Dialer builds a fresh Connection for a host and port. The pools take
// one so the same keying logic can serve TCP and websocket transports.
type Dialer func(host string, port int) Connection

// TCPDialer returns a Dialer producing TCP connections with the given
// timeout.
func TCPDialer(timeout time.Duration) Dialer {
	return func(host string, port int) Connection {
		return NewTCPConnection(host, port, timeout)
	}
}

// WebSocketDialer returns a Dialer producing websocket connections to
// the given endpoint path.
func WebSocketDialer(endpoint string, timeout time.Duration) Dialer {
	return func(host string, port int) Connection {
		return NewWebSocketConnection(host, port, endpoint, timeout)
	}
}

// Pool is a Provider that shares one Connection per host:port key.
// Suitable for a duplex client, whose single read loop owns the
// connection; callers wanting thread affinity should hold one Pool per
// worker instead of sharing this one.
type Pool struct {
	mu    sync.Mutex
	dial  Dialer
	conns map[string]Connection
}

// NewPool creates a keyed connection pool around the given dialer.
func NewPool(dial Dialer) *Pool {
	return &Pool{
		dial:  dial,
		conns: make(map[string]Connection),
	}
}

// Get returns the pooled Connection for host:port, dialing a new one
// into the pool on first use.
func (p *Pool) Get(host string, port int) Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := fmt.Sprintf("%s:%d", host, port)
	conn, ok := p.conns[key]
	if !ok {
		conn = p.dial(host, port)
		p.conns[key] = conn
	}
	return conn
}

// All returns every connection the pool currently holds.
func (p *Pool) All() []Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := make([]Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	return conns
}

// Fresh is a Provider that never pools: every Get builds a new
// Connection. This is the explicit replacement for the old thread-local
// pooling strategy; give each worker its own connections by routing its
// Gets through a Fresh provider.
type Fresh struct {
	dial Dialer
}

// NewFresh creates a non-pooling provider around the given dialer.
func NewFresh(dial Dialer) *Fresh {
	return &Fresh{dial: dial}
}

// Get builds and returns a brand new Connection.
func (f *Fresh) Get(host string, port int) Connection {
	return f.dial(host, port)
}
