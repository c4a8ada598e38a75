// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

// Package connection provides the byte-stream transports the STOMP
// clients talk through, and the Provider abstraction that hands
// connections out. Pooling strategy lives behind Provider; the clients
// never reach for ambient global state.
package connection

import (
	"errors"
	"fmt"
)

// Connection is a byte-stream transport to a STOMP broker. Send and
// Read move raw frame bytes; framing is the caller's concern.
//
// Implementations connect lazily: Send dials first when no session is
// established. A Connection is not safe for concurrent use; guard it
// externally or give each goroutine its own via a Provider.
type Connection interface {
	// Connect establishes the underlying transport session. Calling
	// Connect on an already connected Connection is a no-op.
	Connect() error

	// Send writes raw bytes to the transport, dialing first if needed.
	Send(data []byte) error

	// Read blocks until bytes arrive and returns up to max of them.
	// A nil slice with a nil error signals the end of the stream.
	Read(max int) ([]byte, error)

	// Disconnect tears the transport session down. Disconnecting an
	// unconnected Connection is a no-op.
	Disconnect() error
}

// Provider hands out a Connection for a host and port. Pooling and
// keying strategy (shared, per-worker, fresh-per-call) is entirely the
// provider's business.
type Provider interface {
	Get(host string, port int) Connection
}

// ConnError is a transport-level failure. Callers use IsConnError to
// decide whether a failed send is worth one reconnect-and-retry.
type ConnError struct {
	Op      string
	Addr    string
	Timeout bool
	Err     error
}

func (e *ConnError) Error() string {
	kind := "connection error"
	if e.Timeout {
		kind = "connection timeout"
	}
	return fmt.Sprintf("%s during %s to %s: %v", kind, e.Op, e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// ErrNotConnected is returned for operations that require an
// established session when there is none. Never retried.
var ErrNotConnected = errors.New("not connected to the STOMP server")

// IsConnError reports whether err is (or wraps) a transport-level
// connection failure.
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err is a transport-level timeout.
func IsTimeout(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce) && ce.Timeout
}
