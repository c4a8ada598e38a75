// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package connection

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TCPConnection is the standard transport: a single TCP socket to the
// broker with Nagle disabled, since STOMP frames are small and latency
// sensitive.
//
// A duplex client shares one TCPConnection between its read loop and
// its sender goroutines, so the socket field is guarded by a mutex.
// Each call snapshots the socket under the lock and then works on the
// snapshot; closing the socket from Disconnect unblocks a concurrent
// Read, which observes the close as end of stream.
type TCPConnection struct {
	host    string
	port    int
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn

	log *logrus.Entry
}

// NewTCPConnection creates an unconnected TCP transport for the given
// broker address. timeout bounds dialing only; reads block indefinitely
// between frames, as an idle subscriber's read loop must.
func NewTCPConnection(host string, port int, timeout time.Duration) *TCPConnection {
	return &TCPConnection{
		host:    host,
		port:    port,
		timeout: timeout,
		log: logrus.WithFields(logrus.Fields{
			"component": "tcp-connection",
			"addr":      fmt.Sprintf("%s:%d", host, port),
		}),
	}
}

func (c *TCPConnection) addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// Connect dials the broker if no socket is currently open.
func (c *TCPConnection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *TCPConnection) connectLocked() error {
	if c.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp", c.addr(), c.timeout)
	if err != nil {
		return c.wrap("connect", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}

	c.log.Debug("connected")
	c.conn = conn
	return nil
}

// Send writes data to the socket, dialing first when disconnected. A
// write failure drops the socket so the next Send dials fresh.
func (c *TCPConnection) Send(data []byte) error {
	c.mu.Lock()
	if err := c.connectLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	conn := c.conn
	c.mu.Unlock()

	if _, err := conn.Write(data); err != nil {
		c.drop(conn)
		return c.wrap("send", err)
	}
	return nil
}

// Read blocks for up to max bytes from the socket. The end of the
// stream is reported as (nil, nil), per the Connection contract.
func (c *TCPConnection) Read(max int) ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	buf := make([]byte, max)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		if isClosedConn(err) {
			// a concurrent Disconnect closed the socket under us; that
			// is a deliberate shutdown, not a transport failure.
			return nil, nil
		}
		return nil, c.wrap("read", err)
	}
	return nil, nil
}

// Disconnect closes the socket, if open. A read loop blocked on the
// socket wakes with end of stream.
func (c *TCPConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.log.Debug("disconnected")
	return err
}

// drop discards a failed socket, but only if it is still the current
// one; a concurrent reconnect must not have its fresh socket torn down.
func (c *TCPConnection) drop(failed net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failed.Close()
	if c.conn == failed {
		c.conn = nil
	}
}

func (c *TCPConnection) wrap(op string, err error) error {
	timeout := false
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		timeout = true
	}
	return &ConnError{Op: op, Addr: c.addr(), Timeout: timeout, Err: err}
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
